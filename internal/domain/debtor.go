package domain

import "strings"

type Debtor struct {
	ID string

	FirstName string
	LastName  string

	Email       *string
	Phone       *string
	Nationality *string
	Language    *string
	Status      *string

	TotalDebtAmount    int64
	TotalDebtRemaining int64
}

func (d Debtor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}
