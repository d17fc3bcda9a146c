package enrich

// Sentiment 是文本极性的三分类结果
type Sentiment string

const (
	Positive Sentiment = "Positive"
	Negative Sentiment = "Negative"
	Neutral  Sentiment = "Neutral"
)

// Sector 是粗粒度的主题分类，General 为兜底值
type Sector string

const (
	Defense       Sector = "Defense"
	Government    Sector = "Government"
	Sports        Sector = "Sports"
	Crime         Sector = "Crime"
	Entertainment Sector = "Entertainment"
	Financial     Sector = "Financial"
	Energy        Sector = "Energy"
	Technology    Sector = "Technology"
	General       Sector = "General"
)

// Keywords 是实体抽取结果，按类型分桶；序列化为嵌套 JSON，而不是拼接字符串
type Keywords struct {
	Organizations []string `json:"organizations"`
	Places        []string `json:"places"`
	Names         []string `json:"names"`
	Other         []string `json:"other_keywords"`
}

// NewKeywords 返回四个桶均为空切片的结果，保证 JSON 中是 [] 而不是 null
func NewKeywords() Keywords {
	return Keywords{
		Organizations: []string{},
		Places:        []string{},
		Names:         []string{},
		Other:         []string{},
	}
}

// Normalized 把 nil 桶替换为空切片
func (k Keywords) Normalized() Keywords {
	out := k
	if out.Organizations == nil {
		out.Organizations = []string{}
	}
	if out.Places == nil {
		out.Places = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	if out.Other == nil {
		out.Other = []string{}
	}
	return out
}

// Result 是一次富化的完整输出
type Result struct {
	Sentiment Sentiment
	Sector    Sector
	Keywords  Keywords
}

// Entity 是识别器返回的一个命名实体
type Entity struct {
	Text  string
	Label string
}
