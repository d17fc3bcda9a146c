package enrich

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

const warmupText = "Reuters reported that Angela Merkel met officials in Paris."

// ProseRecognizer 基于 prose 的 NER 模型；modelDir 为空时使用内置模型
type ProseRecognizer struct {
	model *prose.Model
}

func NewProseRecognizer(modelDir string) (*ProseRecognizer, error) {
	r := &ProseRecognizer{}
	if modelDir != "" {
		model, err := loadModel(modelDir)
		if err != nil {
			return nil, err
		}
		r.model = model
	}

	// 预热一次，确保模型可用；失败直接在启动阶段暴露
	if _, err := r.Entities(warmupText); err != nil {
		return nil, fmt.Errorf("warm up ner model: %w", err)
	}
	return r, nil
}

func loadModel(dir string) (model *prose.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("load ner model from %s: %v", dir, r)
		}
	}()
	return prose.ModelFromDisk(dir), nil
}

func (r *ProseRecognizer) Entities(text string) (ents []Entity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ents, err = nil, fmt.Errorf("prose: %v", rec)
		}
	}()

	opts := []prose.DocOpt{prose.WithSegmentation(false)}
	if r.model != nil {
		opts = append(opts, prose.UsingModel(r.model))
	}

	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return nil, err
	}

	for _, ent := range doc.Entities() {
		ents = append(ents, Entity{Text: ent.Text, Label: ent.Label})
	}
	return ents, nil
}
