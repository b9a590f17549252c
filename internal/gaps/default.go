// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gaps

import "github.com/pdiddy/company-research/pkg/types"

const (
	critical = types.PriorityCritical
	high     = types.PriorityHigh
	medium   = types.PriorityMedium
	low      = types.PriorityLow
)

// DefaultSchema returns the built-in field schema for all five topics.
func DefaultSchema() *Schema {
	return &Schema{
		Topics: map[types.Topic]TopicSchema{
			types.TopicProfile: {
				Queries: []string{
					"{company} company overview",
					"{company} business model products and services",
					"{company} founded headquarters ownership",
				},
				Fields: []FieldSpec{
					{Name: "company_name", Priority: critical, Description: "legal company name"},
					{Name: "business_model", Priority: critical, Description: "how the company makes money",
						Queries: []string{"{company} business model explained", "how does {company} make money"}},
					{Name: "products_services", Priority: critical, Description: "main products and services",
						Queries: []string{"{company} product portfolio", "{company} main products and services"}},
					{Name: "founded", Priority: high, Description: "founding year",
						Queries: []string{"{company} founded year history"}},
					{Name: "ownership_type", Priority: high, Description: "public, private, or subsidiary status",
						Queries: []string{"{company} publicly traded or private ownership"}},
					{Name: "revenue_streams", Priority: high, Description: "sources of revenue"},
					{Name: "headquarters", Priority: medium, Description: "headquarters location"},
					{Name: "employee_count", Priority: medium, Description: "number of employees"},
					{Name: "mission", Priority: low, Description: "mission statement"},
				},
			},
			types.TopicLeadership: {
				Queries: []string{
					"{company} leadership team executives",
					"{company} founders and CEO",
				},
				Fields: []FieldSpec{
					{Name: "founders", Priority: critical, Description: "company founders",
						Queries: []string{"{company} founder background previous companies"}},
					{Name: "ceo", Priority: critical, Description: "chief executive officer",
						Queries: []string{"{company} CEO biography career history", "who is the CEO of {company}"}},
					{Name: "cto", Priority: high, Description: "chief technology officer"},
					{Name: "cfo", Priority: high, Description: "chief financial officer"},
					{Name: "leadership_style", Priority: high, Description: "leadership and management style"},
					{Name: "other_executives", Priority: medium, Description: "other executive team members",
						Queries: []string{"{company} executive team management bios"}},
					{Name: "key_person_risks", Priority: low, Description: "key person dependencies"},
				},
			},
			types.TopicFinancial: {
				Queries: []string{
					"{company} annual revenue {year}",
					"{company} profitability net income",
					"{company} funding rounds valuation",
				},
				Fields: []FieldSpec{
					{Name: "revenue", Priority: critical, Description: "most recent annual revenue",
						Queries: []string{
							"{company} 10-K SEC filing {year} annual revenue",
							"{company} Q4 {year} earnings call transcript revenue",
							"{company} investor presentation {year} financial results",
						}},
					{Name: "profitability", Priority: critical, Description: "profitability and margins",
						Queries: []string{"{company} net income {year}", "{company} operating margin EBITDA"}},
					{Name: "funding", Priority: high, Description: "funding history and investors",
						Queries: []string{"{company} total funding raised investors", "{company} latest funding round"}},
					{Name: "financial_health_score", Priority: high, Description: "overall financial health assessment"},
					{Name: "financial_ratios", Priority: medium, Description: "key financial ratios"},
					{Name: "stock_ticker", Priority: medium, Description: "stock ticker symbol"},
					{Name: "financial_highlights", Priority: low, Description: "notable financial highlights"},
				},
			},
			types.TopicMarket: {
				Queries: []string{
					"{company} market size industry",
					"{company} competitors market share",
				},
				Fields: []FieldSpec{
					{Name: "market", Priority: critical, Description: "market definition and size",
						Queries: []string{"{company} total addressable market TAM"}},
					{Name: "competitors", Priority: critical, Description: "main competitors",
						Queries: []string{"{company} top competitors alternatives", "{company} vs competitors comparison"}},
					{Name: "swot", Priority: high, Description: "strengths, weaknesses, opportunities, threats",
						Queries: []string{"{company} SWOT analysis"}},
					{Name: "market_position", Priority: high, Description: "position within the market"},
					{Name: "market_trends", Priority: medium, Description: "relevant industry trends"},
					{Name: "partnerships", Priority: low, Description: "strategic partnerships"},
				},
			},
			types.TopicSignals: {
				Queries: []string{
					"{company} latest news {year}",
					"{company} risks controversies",
					"{company} hiring layoffs employee reviews",
				},
				Fields: []FieldSpec{
					{Name: "recent_news", Priority: critical, Description: "recent news coverage",
						Queries: []string{"{company} news this month", "{company} announcement {year}"}},
					{Name: "risks", Priority: critical, Description: "material business risks",
						Queries: []string{"{company} risk factors annual report", "{company} lawsuit regulatory investigation"}},
					{Name: "employee_sentiment", Priority: high, Description: "employee sentiment",
						Queries: []string{"{company} Glassdoor reviews employee satisfaction"}},
					{Name: "hiring_trends", Priority: high, Description: "hiring and headcount trends",
						Queries: []string{"{company} job openings hiring trend {year}"}},
					{Name: "social_sentiment", Priority: medium, Description: "public and social media sentiment"},
					{Name: "awards", Priority: low, Description: "awards and recognition"},
				},
			},
		},
		Placeholders: append([]string(nil), DefaultPlaceholders...),
	}
}
