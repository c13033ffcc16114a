package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
)

func TestFiscalMonthIndex(t *testing.T) {
	assert.Equal(t, 0, models.FiscalMonthIndex("Apr"))
	assert.Equal(t, 8, models.FiscalMonthIndex("Dec"))
	assert.Equal(t, 11, models.FiscalMonthIndex("Mar"))
	assert.Equal(t, 12, models.FiscalMonthIndex("April"))
}

func TestSortChronological(t *testing.T) {
	records := []models.MonthlyRecord{
		{FinYear: "2024-2025", Month: "Jan", DistrictCode: "3101"},
		{FinYear: "2023-2024", Month: "Mar", DistrictCode: "3101"},
		{FinYear: "2024-2025", Month: "Apr", DistrictCode: "3102"},
		{FinYear: "2024-2025", Month: "Apr", DistrictCode: "3101"},
		{FinYear: "2024-2025", Month: "Dec", DistrictCode: "3101"},
	}

	models.SortChronological(records)

	var got []string
	for _, r := range records {
		got = append(got, r.FinYear+"/"+r.Month+"/"+r.DistrictCode)
	}
	assert.Equal(t, []string{
		"2023-2024/Mar/3101",
		"2024-2025/Apr/3101",
		"2024-2025/Apr/3102",
		"2024-2025/Dec/3101",
		"2024-2025/Jan/3101",
	}, got)
}
