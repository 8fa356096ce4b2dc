package utils

import (
	"time"
)

type ScoreConfig struct {
	FreshnessWindow float64 // 新鲜度加成窗口（小时），超过后加成归零 (72)
	FreshnessScale  float64 // 加成除数，窗口顶点的加成 = 窗口/除数 (4 -> 最高 +18)
	HotThreshold    int     // 高于此分数进入 hot 档 (10)
	ColdThreshold   int     // 低于此分数进入 cold 档 (-10)
}

var DefaultScoreConfig = ScoreConfig{
	FreshnessWindow: 72.0,
	FreshnessScale:  4.0,
	HotThreshold:    10,
	ColdThreshold:   -10,
}

// Credibility 净可信度分 = 赞数 - 踩数，台账的纯函数
func Credibility(up, down int) int {
	return up - down
}

// FreshnessBoost 线性衰减的新鲜度加成：max(0, 72-age)/4
// 以最近一次互动时间为年龄基准，新条目最多 +18，72 小时后归零
func FreshnessBoost(ageHours float64) float64 {
	remain := DefaultScoreConfig.FreshnessWindow - ageHours
	if remain < 0 {
		remain = 0
	}
	return remain / DefaultScoreConfig.FreshnessScale
}

// Trending 热度分 = 可信度 + 新鲜度加成
func Trending(credibility int, lastInteractionAt, now time.Time) float64 {
	age := now.Sub(lastInteractionAt).Hours()
	if age < 0 {
		age = 0
	}
	return float64(credibility) + FreshnessBoost(age)
}

// Tier 展示用的离散档位，不参与排序
func Tier(score int) string {
	switch {
	case score > DefaultScoreConfig.HotThreshold:
		return "hot"
	case score < DefaultScoreConfig.ColdThreshold:
		return "cold"
	default:
		return "neutral"
	}
}
