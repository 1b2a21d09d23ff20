package services

import (
	"fmt"
	"strings"

	"insurance-analytics/models"
)

// Print writes the portfolio digest to stdout. Purely cosmetic; every number
// shown here also lands in the exported CSVs.
func (s *ReportService) Print(res *models.AnalyticsResults) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 INSURANCE PORTFOLIO ANALYTICS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	sum := res.Summary
	fmt.Printf("\033[1;33m  Portfolio Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Policies in force   : \033[1m%d\033[0m\n", sum.TotalPolicies)
	fmt.Printf("  Claims filed        : \033[1m%d\033[0m\n", sum.TotalClaims)
	fmt.Printf("  Premium written     : \033[1;32m$%.2f\033[0m\n", sum.TotalPremium)
	fmt.Printf("  Claims incurred     : \033[1;31m$%.2f\033[0m\n", sum.TotalClaimAmount)
	if sum.OverallLossRatio.Valid {
		fmt.Printf("  Overall loss ratio  : %s\n", colorRatio(sum.OverallLossRatio.Float64))
	} else {
		fmt.Printf("  Overall loss ratio  : n/a (no premium volume)\n")
	}
	fmt.Println()

	// Loss ratio by car type
	fmt.Printf("\033[1;33m  Loss Ratio by Car Type\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(res.LossByCarType) == 0 {
		fmt.Printf("  No loss ratio data\n")
	} else {
		for _, r := range res.LossByCarType {
			if r.LossRatio.Valid {
				fmt.Printf("  %-10s %s  (%d policies, %d claims)\n",
					r.CarType, colorRatio(r.LossRatio.Float64), r.Policies, r.ClaimCount)
			} else {
				fmt.Printf("  %-10s n/a     (no premium)\n", r.CarType)
			}
		}
	}
	fmt.Println()

	// Costliest policy
	if len(res.TopPolicies) > 0 {
		top := res.TopPolicies[0]
		fmt.Printf("\033[1;33m  Costliest Policy\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  Policy #%d (%s, age group %s)\n", top.PolicyID, top.CarType, top.AgeGroup)
		fmt.Printf("  Premium : \033[1;32m$%.2f\033[0m\n", top.Premium)
		fmt.Printf("  Claims  : \033[1;31m$%.2f\033[0m across %d records\n", top.TotalClaims, top.ClaimCount)
		fmt.Println()
	}

	// Claims by age group
	fmt.Printf("\033[1;33m  Claims by Age Group\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(res.AgeGroups) == 0 {
		fmt.Printf("  No age group data\n")
	} else {
		for _, r := range res.AgeGroups {
			bar := strings.Repeat("█", barLength(r.ClaimCount, maxClaimCount(res.AgeGroups)))
			fmt.Printf("  %-8s %s (%d claims, %.4f per policy)\n", r.AgeGroup, bar, r.ClaimCount, r.ClaimFrequency)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// colorRatio renders a loss ratio green below breakeven and red at or above
// it.
func colorRatio(v float64) string {
	if v >= 1 {
		return fmt.Sprintf("\033[1;31m%.4f\033[0m", v)
	}
	return fmt.Sprintf("\033[1;32m%.4f\033[0m", v)
}

// barLength scales a count into at most 40 block characters.
func barLength(count, max int) int {
	if max <= 0 || count <= 0 {
		return 0
	}
	n := count * 40 / max
	if n < 1 {
		n = 1
	}
	return n
}

func maxClaimCount(rows []models.AgeGroupRow) int {
	max := 0
	for _, r := range rows {
		if r.ClaimCount > max {
			max = r.ClaimCount
		}
	}
	return max
}
