package main

import (
	"math/rand/v2"
	"time"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

type district struct {
	code string
	name string
}

// upDistricts are the 75 districts of Uttar Pradesh.
var upDistricts = []district{
	{"3101", "SAHARANPUR"}, {"3102", "MUZAFFARNAGAR"}, {"3103", "BIJNOR"},
	{"3104", "MORADABAD"}, {"3105", "RAMPUR"}, {"3106", "JYOTIBA PHULE NAGAR"},
	{"3107", "MEERUT"}, {"3108", "BAGHPAT"}, {"3109", "GHAZIABAD"},
	{"3110", "GAUTAM BUDDHA NAGAR"}, {"3111", "BULANDSHAHR"}, {"3112", "ALIGARH"},
	{"3113", "MAHAMAYA NAGAR"}, {"3114", "MATHURA"}, {"3115", "AGRA"},
	{"3116", "FIROZABAD"}, {"3117", "MAINPURI"}, {"3118", "BUDAUN"},
	{"3119", "BAREILLY"}, {"3120", "PILIBHIT"}, {"3121", "SHAHJAHANPUR"},
	{"3122", "KHERI"}, {"3123", "SITAPUR"}, {"3124", "HARDOI"},
	{"3125", "UNNAO"}, {"3126", "LUCKNOW"}, {"3127", "RAE BARELI"},
	{"3128", "FARRUKHABAD"}, {"3129", "KANNAUJ"}, {"3130", "ETAWAH"},
	{"3131", "AURAIYA"}, {"3132", "KANPUR DEHAT"}, {"3133", "KANPUR NAGAR"},
	{"3134", "JALAUN"}, {"3135", "JHANSI"}, {"3136", "LALITPUR"},
	{"3137", "HAMIRPUR"}, {"3138", "MAHOBA"}, {"3139", "BANDA"},
	{"3140", "CHITRAKOOT"}, {"3141", "FATEHPUR"}, {"3142", "PRATAPGARH"},
	{"3143", "KAUSHAMBI"}, {"3144", "ALLAHABAD"}, {"3145", "BARABANKI"},
	{"3146", "FAIZABAD"}, {"3147", "AMBEDKAR NAGAR"}, {"3148", "SULTANPUR"},
	{"3149", "BAHRAICH"}, {"3150", "SHRAWASTI"}, {"3151", "BALRAMPUR"},
	{"3152", "GONDA"}, {"3153", "SIDDHARTHNAGAR"}, {"3154", "BASTI"},
	{"3155", "SANT KABIR NAGAR"}, {"3156", "MAHARAJGANJ"}, {"3157", "GORAKHPUR"},
	{"3158", "KUSHINAGAR"}, {"3159", "DEORIA"}, {"3160", "AZAMGARH"},
	{"3161", "MAU"}, {"3162", "BALLIA"}, {"3163", "JAUNPUR"},
	{"3164", "GHAZIPUR"}, {"3165", "CHANDAULI"}, {"3166", "VARANASI"},
	{"3167", "SANT RAVIDAS NAGAR"}, {"3168", "MIRZAPUR"}, {"3169", "SONBHADRA"},
	{"3170", "ETAH"}, {"3171", "KANSHIRAM NAGAR"}, {"3172", "AMETHI"},
	{"3173", "SAMBHAL"}, {"3174", "HAPUR"}, {"3175", "SHAMLI"},
}

var defaultYears = []string{"2022-2023", "2023-2024", "2024-2025"}

// yearGrowth scales activity up in later years.
var yearGrowth = map[string]float64{
	"2023-2024": 1.05,
	"2024-2025": 1.15,
}

// generator produces plausible monthly figures.
type generator struct {
	rng      *rand.Rand
	syncedAt time.Time
}

func newGenerator(seed uint64, syncedAt time.Time) *generator {
	return &generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		syncedAt: syncedAt,
	}
}

// intn returns an integer in [lo, hi].
func (g *generator) intn(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo+1)
}

// float returns a value in [lo, hi) rounded to two places.
func (g *generator) float(lo, hi float64) float64 {
	return utils.Round(lo+g.rng.Float64()*(hi-lo), 2)
}

func scale(n int64, f float64) int64 { return int64(float64(n) * f) }

// peakSeason reports whether month falls between April and October.
func peakSeason(month string) bool {
	i := models.FiscalMonthIndex(month)
	return i <= models.FiscalMonthIndex("Oct")
}

// record generates one district month.
func (g *generator) record(d district, finYear, month string) models.MonthlyRecord {
	season := 0.8
	if peakSeason(month) {
		season = 1.2
	}
	growth, ok := yearGrowth[finYear]
	if !ok {
		growth = 1
	}
	multiplier := g.float(0.7, 1.3) * season * growth

	baseHouseholds := g.intn(50000, 150000)
	households := int64(float64(baseHouseholds) * g.float(0.4, 0.7) * multiplier)
	individuals := scale(households, g.float(1.2, 1.5))
	activeWorkers := scale(individuals, g.float(1.3, 1.8))
	workers := scale(activeWorkers, g.float(1.2, 1.5))

	days := g.intn(35, 65)
	persondays := households * days
	wageRate := g.float(220, 260)

	worksTakenUp := g.intn(20000, 60000)
	completed := scale(worksTakenUp, g.float(0.4, 0.7))
	ongoing := worksTakenUp - completed - g.intn(1000, 5000)

	// Money is in lakhs.
	wages := float64(persondays) * wageRate / 100000
	material := wages * g.float(0.25, 0.35)
	admin := wages * g.float(0.03, 0.06)

	return models.MonthlyRecord{
		FinYear:      finYear,
		Month:        month,
		StateCode:    "31",
		StateName:    "UTTAR PRADESH",
		DistrictCode: d.code,
		DistrictName: d.name,

		ApprovedLabourBudget:          scale(persondays, g.float(1.1, 1.3)),
		AverageWageRate:               wageRate,
		AverageDaysOfEmployment:       float64(days),
		DifferentlyAbledPersonsWorked: g.intn(100, 800),

		SCPersondays:               scale(persondays, g.float(0.15, 0.25)),
		SCWorkersAgainstActive:     scale(activeWorkers, g.float(0.15, 0.25)),
		STPersondays:               scale(persondays, g.float(0.01, 0.08)),
		STWorkersAgainstActive:     scale(activeWorkers, g.float(0.01, 0.08)),
		WomenPersondays:            scale(persondays, g.float(0.45, 0.65)),
		CentralLiabilityPersondays: persondays,

		CompletedWorks: completed,
		OngoingWorks:   ongoing,
		GPsWithNilExp:  g.intn(0, 15),
		WorksTakenUp:   worksTakenUp,

		TotalExp:            utils.Round(wages+material+admin, 2),
		TotalAdmExpenditure: utils.Round(admin, 2),
		Wages:               utils.Round(wages, 2),
		MaterialWages:       utils.Round(material, 2),

		HouseholdsWorked:       households,
		IndividualsWorked:      individuals,
		ActiveJobCards:         scale(baseHouseholds, g.float(0.6, 0.9)),
		ActiveWorkers:          activeWorkers,
		HouseholdsCompleted100: scale(households, g.float(0.05, 0.15)),
		JobCardsIssued:         scale(baseHouseholds, g.float(0.8, 1.2)),
		Workers:                workers,

		PercentCategoryBWorks:       float64(g.intn(30, 80)),
		PercentAgricultureExp:       g.float(35, 65),
		PercentNRMExpenditure:       g.float(10, 30),
		PercentPaymentsWithin15Days: g.float(85, 105),

		Remarks:      "NA",
		LastSyncedAt: g.syncedAt,
	}
}

// generate returns every district for every month of years, year by year
// and month by month.
func (g *generator) generate(years []string) []models.MonthlyRecord {
	out := make([]models.MonthlyRecord, 0, len(years)*len(models.Months)*len(upDistricts))
	for _, y := range years {
		for _, m := range models.Months {
			for _, d := range upDistricts {
				out = append(out, g.record(d, y, m))
			}
		}
	}
	return out
}
