package enrich

import (
	"fmt"
	"strings"
)

// PolarityScorer 给出文本极性，>0 为正面，<0 为负面
type PolarityScorer interface {
	Polarity(text string) float64
}

// EntityRecognizer 从文本中识别命名实体
type EntityRecognizer interface {
	Entities(text string) ([]Entity, error)
}

// Engine 组合情感、行业与实体抽取。构造后只读，可被多个 goroutine 并发调用
type Engine struct {
	polarity PolarityScorer
	entities EntityRecognizer
	sectors  []SectorRule
}

func NewEngine(polarity PolarityScorer, entities EntityRecognizer, sectors []SectorRule) *Engine {
	if sectors == nil {
		sectors = DefaultSectorRules
	}
	return &Engine{polarity: polarity, entities: entities, sectors: sectors}
}

// NewDefaultEngine 加载 VADER 词典与 prose NER 模型，任一失败都应视为启动失败
func NewDefaultEngine(nerModelDir string) (*Engine, error) {
	scorer, err := NewVaderScorer()
	if err != nil {
		return nil, fmt.Errorf("load sentiment lexicon: %w", err)
	}
	recognizer, err := NewProseRecognizer(nerModelDir)
	if err != nil {
		return nil, fmt.Errorf("load ner model: %w", err)
	}
	return NewEngine(scorer, recognizer, DefaultSectorRules), nil
}

func (e *Engine) Enrich(text string) (Result, error) {
	ents, err := e.entities.Entities(text)
	if err != nil {
		return Result{}, fmt.Errorf("extract entities: %w", err)
	}
	return Result{
		Sentiment: ClassifySentiment(e.polarity.Polarity(text)),
		Sector:    ClassifySector(text, e.sectors),
		Keywords:  BucketEntities(ents),
	}, nil
}

func ClassifySentiment(polarity float64) Sentiment {
	switch {
	case polarity > 0:
		return Positive
	case polarity < 0:
		return Negative
	default:
		return Neutral
	}
}

// BucketEntities 按实体类型分桶，保持出现顺序
func BucketEntities(ents []Entity) Keywords {
	kw := NewKeywords()
	for _, ent := range ents {
		text := strings.TrimSpace(ent.Text)
		if text == "" {
			continue
		}
		switch strings.ToUpper(ent.Label) {
		case "GPE", "LOC", "FAC":
			kw.Places = append(kw.Places, text)
		case "PERSON":
			kw.Names = append(kw.Names, text)
		case "ORG", "NORP":
			kw.Organizations = append(kw.Organizations, text)
		default:
			kw.Other = append(kw.Other, text)
		}
	}
	return kw
}
