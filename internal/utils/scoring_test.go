package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredibility(t *testing.T) {
	assert.Equal(t, 0, Credibility(0, 0))
	assert.Equal(t, 3, Credibility(5, 2))
	assert.Equal(t, -4, Credibility(1, 5))
}

func TestFreshnessBoost(t *testing.T) {
	tests := []struct {
		ageHours float64
		want     float64
	}{
		{0, 18},  // 新条目拿满加成
		{36, 9},  // 线性衰减到一半
		{72, 0},  // 窗口边界归零
		{100, 0}, // 过期不为负
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, FreshnessBoost(tt.ageHours), 1e-9, "age %v", tt.ageHours)
	}
}

func TestTrendingUsesLastInteraction(t *testing.T) {
	now := time.Now()

	// 刚互动过：可信度 + 满额加成
	assert.InDelta(t, 23.0, Trending(5, now, now), 1e-9)

	// 72 小时没有互动，只剩可信度
	stale := now.Add(-73 * time.Hour)
	assert.InDelta(t, 5.0, Trending(5, stale, now), 1e-9)

	// 时钟偏差导致未来时间戳时按 0 岁处理
	future := now.Add(time.Hour)
	assert.InDelta(t, 23.0, Trending(5, future, now), 1e-9)
}

func TestTier(t *testing.T) {
	assert.Equal(t, "hot", Tier(11))
	assert.Equal(t, "neutral", Tier(10))
	assert.Equal(t, "neutral", Tier(0))
	assert.Equal(t, "neutral", Tier(-10))
	assert.Equal(t, "cold", Tier(-11))
}
