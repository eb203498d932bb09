// Package sample generates synthetic online card consumption records for
// local development and demos.
package sample

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"cardtrend/internal/core"
)

// Online spending categories found in the Seoul card consumption data.
const (
	CategoryConvenienceFood = "간편식/건강식품"
	CategoryEducation       = "교육/학습"
	CategoryBooksMusic      = "도서/음반"
	CategoryCultureArts     = "문화/예술"
	CategoryBeauty          = "미용/뷰티"
	CategoryDelivery        = "배달앱"
	CategoryShopping        = "생활쇼핑"
	CategoryStreaming       = "스트리밍서비스"
	CategoryTravel          = "여행/교통"
	CategoryGames           = "온라인게임"
	CategoryFashion         = "의류/패션"
	CategoryElectronics     = "전자기기"
	CategorySubscription    = "정기구독"
	CategoryHomeInterior    = "홈인테리어"
)

var (
	Categories = []string{
		CategoryConvenienceFood, CategoryEducation, CategoryBooksMusic, CategoryCultureArts,
		CategoryBeauty, CategoryDelivery, CategoryShopping, CategoryStreaming,
		CategoryTravel, CategoryGames, CategoryFashion, CategoryElectronics,
		CategorySubscription, CategoryHomeInterior,
	}
	AgeGroups = []string{"20대", "30대", "40대", "50대", "60대 이상"}
	Genders   = []string{"남성", "여성"}
	Years     = []int{2021, 2022, 2023}
)

// DistrictCount is the number of administrative district codes generated.
const DistrictCount = 50

// Districts returns the generated district codes, 11001 through 11050.
func Districts() []string {
	out := make([]string, DistrictCount)
	for i := range out {
		out[i] = fmt.Sprintf("11%03d", i+1)
	}
	return out
}

type band struct {
	minAmount, maxAmount int
	minTx, maxTx         int
}

func bandFor(category string) band {
	switch category {
	case CategoryElectronics, CategoryTravel:
		return band{100_000, 1_000_000, 1, 5}
	case CategoryGames, CategoryStreaming, CategorySubscription:
		return band{10_000, 50_000, 1, 10}
	case CategoryDelivery:
		return band{15_000, 100_000, 3, 15}
	default:
		return band{20_000, 300_000, 1, 8}
	}
}

// Generator draws records from a seeded faker. The same seed always yields
// the same records.
type Generator struct {
	faker     *gofakeit.Faker
	districts []string
	periods   []core.Period
}

func NewGenerator(seed uint64) *Generator {
	periods := make([]core.Period, 0, len(Years)*12)
	for _, y := range Years {
		for m := 1; m <= 12; m++ {
			periods = append(periods, core.NewPeriod(y, m))
		}
	}
	return &Generator{
		faker:     gofakeit.New(seed),
		districts: Districts(),
		periods:   periods,
	}
}

// Record draws one record.
func (g *Generator) Record() core.Record {
	f := g.faker
	period := g.periods[f.Number(0, len(g.periods)-1)]
	category := f.RandomString(Categories)
	b := bandFor(category)

	amount := f.Number(b.minAmount, b.maxAmount)
	tx := f.Number(b.minTx, b.maxTx)
	amount = seasonal(category, period, amount)

	return core.Record{
		Period:           period,
		Category:         category,
		Region:           f.RandomString(g.districts),
		AgeGroup:         f.RandomString(AgeGroups),
		Gender:           f.RandomString(Genders),
		TransactionCount: tx,
		Amount:           float64(amount),
	}
}

// Records draws n records.
func (g *Generator) Records(n int) []core.Record {
	if n < 0 {
		n = 0
	}
	out := make([]core.Record, n)
	for i := range out {
		out[i] = g.Record()
	}
	return out
}

// Generate is a shorthand for NewGenerator(seed).Records(n).
func Generate(n int, seed uint64) []core.Record {
	return NewGenerator(seed).Records(n)
}

// seasonal applies the summer delivery lift, the winter shopping lift and
// the 2021 online spending surge, truncating after each step.
func seasonal(category string, p core.Period, amount int) int {
	switch {
	case category == CategoryDelivery && p.Month >= 6 && p.Month <= 8:
		amount = amount * 13 / 10
	case category == CategoryShopping && (p.Month >= 11 || p.Month == 1):
		amount = amount * 14 / 10
	}
	if p.Year == 2021 {
		amount = amount * 12 / 10
	}
	return amount
}
