//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

func main() {
	now := time.Now()
	expenses := []models.Expense{
		{Description: "买菜", Amount: decimal.NewFromFloat(150.50), Category: "餐饮", Type: models.ExpenseTypeNeed, Date: now},
		{Description: "火锅", Amount: decimal.NewFromFloat(130.50), Category: "餐饮", Type: models.ExpenseTypeWant, Date: now},
		{Description: "地铁", Amount: decimal.NewFromFloat(60.00), Category: "交通", Type: models.ExpenseTypeNeed, Date: now},
		{Description: "电影", Amount: decimal.NewFromFloat(25.00), Category: "娱乐", Type: models.ExpenseTypeWant, Date: now},
		{Description: "电费", Amount: decimal.NewFromFloat(120.00), Category: "居住", Type: models.ExpenseTypeNeed, Date: now},
	}

	for _, kind := range []string{report.ChartCategory, report.ChartNecessity} {
		chartData, err := report.Chart(kind, expenses)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		name := report.ChartFilename(kind, now)
		if err := os.WriteFile(name, chartData, 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✓ Created %s - example %s breakdown chart\n", name, kind)
	}
}
