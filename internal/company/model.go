package company

import "strings"

// Info is the structured business profile a company is embedded from.
type Info struct {
	BusinessPlatform  string `json:"businessPlatform" validate:"required,max=200"`
	BusinessScale     string `json:"businessScale" validate:"required,max=200"`
	BusinessField     string `json:"business_field" validate:"required,max=200"`
	BusinessStartDate string `json:"businessStartDate" validate:"required,max=50"`
	InvestmentStatus  string `json:"investmentStatus" validate:"required,max=200"`
	CustomerType      string `json:"customerType" validate:"required,max=200"`
}

// Text is the string that gets embedded: every field in a fixed order.
func (i Info) Text() string {
	return strings.Join([]string{
		i.BusinessPlatform,
		i.BusinessScale,
		i.BusinessField,
		i.BusinessStartDate,
		i.InvestmentStatus,
		i.CustomerType,
	}, " ")
}

type Company struct {
	BusinessName string `json:"businessName" validate:"required,max=255"`
	Info         Info   `json:"info"`
}

type Match struct {
	BusinessName    string  `json:"businessName"`
	Info            Info    `json:"info"`
	SimilarityScore float64 `json:"similarityScore"`
}
