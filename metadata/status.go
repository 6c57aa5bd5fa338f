package metadata

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ethpandaops/curvewatch/curve"
)

const (
	newTokenAge       = 24 * time.Hour
	trendingTokenAge  = 72 * time.Hour
	hotTokenAge       = 48 * time.Hour
	minTrendingTrades = 10
	goalClosePercent  = 80
)

var minHotVolume = decimal.NewFromInt(1)

type BadgeVariant string

const (
	BadgeGoal     BadgeVariant = "goal"
	BadgeHot      BadgeVariant = "hot"
	BadgeTrending BadgeVariant = "trending"
	BadgeNew      BadgeVariant = "new"
)

type Badge struct {
	Text    string       `json:"text"`
	Variant BadgeVariant `json:"variant"`
}

type Status struct {
	IsNew       bool   `json:"isNew"`
	IsTrending  bool   `json:"isTrending"`
	IsHot       bool   `json:"isHot"`
	IsGoalClose bool   `json:"isGoalClose"`
	Badge       *Badge `json:"badge,omitempty"`
}

// TokenStatus derives the activity flags and the display badge of a token.
// Live progress takes precedence over the funding figures of the metadata.
func TokenStatus(meta *TokenMetadata, progress *curve.Progress, now time.Time) *Status {
	status := &Status{}
	if meta == nil {
		return status
	}

	age := now.Sub(meta.CreatedAt)
	if meta.CreatedAt.IsZero() {
		age = time.Duration(math.MaxInt64)
	}

	var fundingProgress float64
	if progress != nil {
		fundingProgress = progress.FundingPercentage
	} else {
		fundingProgress = metadataProgress(meta)
	}

	volume, err := decimal.NewFromString(meta.Statistics.VolumeETH)
	if err != nil {
		volume = decimal.Zero
	}

	status.IsNew = age < newTokenAge
	status.IsTrending = meta.Statistics.TradeCount > minTrendingTrades && age < trendingTokenAge
	status.IsHot = volume.GreaterThan(minHotVolume) && age < hotTokenAge
	status.IsGoalClose = fundingProgress > goalClosePercent

	switch {
	case status.IsGoalClose:
		status.Badge = &Badge{Text: fmt.Sprintf("%v%%", math.Round(fundingProgress)), Variant: BadgeGoal}
	case status.IsHot:
		status.Badge = &Badge{Text: "HOT", Variant: BadgeHot}
	case status.IsTrending:
		status.Badge = &Badge{Text: "TRENDING", Variant: BadgeTrending}
	case status.IsNew:
		status.Badge = &Badge{Text: "NEW", Variant: BadgeNew}
	}

	return status
}

func metadataProgress(meta *TokenMetadata) float64 {
	collateral, err := decimal.NewFromString(meta.Collateral)
	if err != nil {
		return 0
	}
	goal, err := decimal.NewFromString(meta.FundingGoal)
	if err != nil || !goal.IsPositive() {
		return 0
	}

	return collateral.Div(goal).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
