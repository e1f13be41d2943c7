package dish

import "time"

// TimeOfDayForHour 依小時判斷時段：[5,11) 早餐、[11,17) 午餐，其餘為晚餐
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 11:
		return Breakfast
	case hour >= 11 && hour < 17:
		return Lunch
	default:
		return Dinner
	}
}

// CurrentTimeOfDay 以本地時鐘判斷目前時段，now 為 nil 時使用 time.Now
func CurrentTimeOfDay(now func() time.Time) TimeOfDay {
	if now == nil {
		now = time.Now
	}
	return TimeOfDayForHour(now().Hour())
}
