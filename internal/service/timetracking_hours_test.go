package service

import (
	"testing"
	"time"
)

func TestComputeHours(t *testing.T) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

	// 90分钟区间减15分钟休息 = 1.25小时
	end := start.Add(90 * time.Minute)
	if got := ComputeHours(start, end, 15); got != 1.25 {
		t.Errorf("expected 1.25 hours, got %v", got)
	}

	// 无休息
	if got := ComputeHours(start, start.Add(2*time.Hour), 0); got != 2.0 {
		t.Errorf("expected 2.0 hours, got %v", got)
	}

	// 休息超过区间时长不产生负工时
	if got := ComputeHours(start, start.Add(10*time.Minute), 30); got != 0 {
		t.Errorf("expected 0 hours, got %v", got)
	}
}

func TestTimeEntryCost(t *testing.T) {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	hours := ComputeHours(start, end, 15)
	cost := RoundMoney(hours * 50)
	if cost != 62.5 {
		t.Errorf("expected cost 62.5, got %v", cost)
	}
}

func TestRoundMoney(t *testing.T) {
	if got := RoundMoney(1.005 * 3); got != 3.02 {
		t.Errorf("expected 3.02, got %v", got)
	}
	if got := RoundMoney(62.5); got != 62.5 {
		t.Errorf("expected 62.5, got %v", got)
	}
}
