package scoring

import "testing"

func TestVideoScoreAndRatios(t *testing.T) {
	if got := VideoScore(1000, 50, 10); got != 730 {
		t.Fatalf("VideoScore = %v, want 730", got)
	}
	if got := Ratio(50, 1000); got != 0.05 {
		t.Fatalf("like ratio = %v, want 0.05", got)
	}
	if got := Ratio(10, 1000); got != 0.01 {
		t.Fatalf("comment ratio = %v, want 0.01", got)
	}
}

func TestRatioZeroViews(t *testing.T) {
	if got := Ratio(12, 0); got != 0 {
		t.Fatalf("Ratio with zero views = %v, want 0", got)
	}
	if got := Ratio(0, 0); got != 0 {
		t.Fatalf("Ratio(0,0) = %v, want 0", got)
	}
}

func TestForumScore(t *testing.T) {
	if got := ForumScore(100, 4, 10, 3); got != 106 {
		t.Fatalf("ForumScore = %v, want 106", got)
	}
}

func TestScoresClampNegativeInputs(t *testing.T) {
	if got := VideoScore(-5, -1, -1); got != 0 {
		t.Fatalf("VideoScore negative inputs = %v, want 0", got)
	}
	if got := ForumScore(-1, 0, 0, 0); got != 0 {
		t.Fatalf("ForumScore negative inputs = %v, want 0", got)
	}
}

func TestTrendChange(t *testing.T) {
	series := make([]float64, 0, 40)
	for i := 0; i < 10; i++ {
		series = append(series, 10)
	}
	for i := 0; i < 30; i++ {
		series = append(series, 15)
	}

	if got := TrendChange(series, 30); got != 50 {
		t.Fatalf("TrendChange 30d = %v, want 50", got)
	}
	if got := TrendChange(series, 60); got != 0 {
		t.Fatalf("TrendChange on short series = %v, want 0", got)
	}
}

func TestTrendChangeZeroEarlierMean(t *testing.T) {
	series := []float64{0, 0, 5, 7}
	if got := TrendChange(series, 2); got != 0 {
		t.Fatalf("TrendChange with zero earlier mean = %v, want 0", got)
	}
	if got := TrendChange([]float64{3, 4}, 2); got != 0 {
		t.Fatalf("TrendChange with empty earlier window = %v, want 0", got)
	}
}

func TestEstimateSearchVolume(t *testing.T) {
	if got := EstimateSearchVolume(42); got != 2520 {
		t.Fatalf("EstimateSearchVolume = %d, want 2520", got)
	}
}
