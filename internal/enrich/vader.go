package enrich

import (
	"fmt"

	"github.com/jonreiter/govader"
)

// VaderScorer 使用 VADER 的 compound 分数作为极性
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() (scorer *VaderScorer, err error) {
	// 词典在构造时加载，异常转成错误交给调用方
	defer func() {
		if r := recover(); r != nil {
			scorer, err = nil, fmt.Errorf("init vader analyzer: %v", r)
		}
	}()
	analyzer := govader.NewSentimentIntensityAnalyzer()
	if analyzer == nil {
		return nil, fmt.Errorf("init vader analyzer: nil analyzer")
	}
	return &VaderScorer{analyzer: analyzer}, nil
}

func (v *VaderScorer) Polarity(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}
