package enrich

import "strings"

// SectorRule 把一个行业映射到若干触发子串
type SectorRule struct {
	Sector   Sector
	Triggers []string
}

// DefaultSectorRules 按顺序匹配，第一个命中的规则胜出；顺序本身就是平局裁决
var DefaultSectorRules = []SectorRule{
	{Sector: Defense, Triggers: []string{"military", "army", "navy", "defense"}},
	{Sector: Government, Triggers: []string{"policy", "election", "government", "minister"}},
	{Sector: Sports, Triggers: []string{"football", "cricket", "Olympics", "sports"}},
	{Sector: Crime, Triggers: []string{"crime", "murder", "theft", "fraud"}},
	{Sector: Entertainment, Triggers: []string{"movie", "film", "actor", "celebrity"}},
	{Sector: Financial, Triggers: []string{"stocks", "market", "finance", "investment"}},
	{Sector: Energy, Triggers: []string{"oil", "gas", "energy", "renewable"}},
	{Sector: Technology, Triggers: []string{
		"cybersecurity", "microsoft", "network", "data science", "machine learning",
		"information technology", "technology", "artificial intelligence",
	}},
}

// ClassifySector 做大小写不敏感的子串匹配，没有命中时返回 General
func ClassifySector(text string, rules []SectorRule) Sector {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, trigger := range rule.Triggers {
			if trigger == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(trigger)) {
				return rule.Sector
			}
		}
	}
	return General
}
