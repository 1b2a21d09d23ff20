package models

// Policy is one insured vehicle in the synthetic portfolio. AgeGroup is
// assigned at generation time so both store backends group on the same
// precomputed label.
type Policy struct {
	ID          int64
	CustomerAge int
	CarType     string
	AgeGroup    string
	Premium     float64
}

// Claim is one claim filed against a policy. Date is an ISO calendar date
// (2006-01-02).
type Claim struct {
	ID       int64
	PolicyID int64
	Amount   float64
	Date     string
}

// Dataset is a complete generated portfolio: every policy plus every claim
// filed against them. Claims reference policies by ID only.
type Dataset struct {
	Policies []*Policy
	Claims   []*Claim
}
