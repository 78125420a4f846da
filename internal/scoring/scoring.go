// Package scoring computes per-source popularity scores and derived metrics.
// All functions are pure and never fail: divisions by zero yield zero.
package scoring

import "math"

// VideoScore weighs video engagement: views*0.6 + likes*2 + comments*3.
func VideoScore(views, likes, comments int64) float64 {
	return float64(nonNeg(views))*0.6 + float64(nonNeg(likes))*2 + float64(nonNeg(comments))*3
}

// ForumScore weighs topic engagement: views*0.5 + replies*5 + likes*3 + contributors*2.
func ForumScore(views, replies, likes, contributors int64) float64 {
	return float64(nonNeg(views))*0.5 +
		float64(nonNeg(replies))*5 +
		float64(nonNeg(likes))*3 +
		float64(nonNeg(contributors))*2
}

// Ratio returns part/whole rounded to two decimals, or 0 when whole is not positive.
func Ratio(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return Round2(float64(nonNeg(part)) / float64(whole))
}

// TrendChange returns the percent change between the mean of the last days
// points of series and the mean of the points before them. It is 0 when the
// series is shorter than days, the earlier window is empty or its mean is 0.
func TrendChange(series []float64, days int) float64 {
	if days <= 0 || len(series) < days {
		return 0
	}
	earlier := series[:len(series)-days]
	if len(earlier) == 0 {
		return 0
	}

	oldAvg := mean(earlier)
	if oldAvg == 0 {
		return 0
	}
	newAvg := mean(series[len(series)-days:])
	return Round2((newAvg - oldAvg) / oldAvg * 100)
}

// EstimateSearchVolume scales relative interest to a rough monthly volume.
func EstimateSearchVolume(interest int) int {
	if interest < 0 {
		return 0
	}
	return interest * 60
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func nonNeg(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
