package service

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	heatmapWeeks       = 52
	heatmapDaysPerWeek = 7
	activityChance     = 0.3
	maxIntensity       = 3
)

// Heatmap is an illustrative activity grid. Cells are not derived from task
// history.
type Heatmap struct {
	Year        int          `json:"year"`
	Weeks       [][]int      `json:"weeks"`
	MonthLabels []MonthLabel `json:"monthLabels"`
	DayLabels   []string     `json:"dayLabels"`
}

type MonthLabel struct {
	Week  int    `json:"week"`
	Label string `json:"label"`
}

type HistoryService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewHistoryService(src rand.Source) *HistoryService {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1)
	}
	return &HistoryService{rng: rand.New(src)}
}

// Heatmap builds a 52x7 grid for the year of now. Roughly 30% of the cells
// carry an intensity between 1 and 3; the rest are 0.
func (s *HistoryService) Heatmap(now time.Time) Heatmap {
	s.mu.Lock()
	defer s.mu.Unlock()

	weeks := make([][]int, heatmapWeeks)
	for w := range weeks {
		days := make([]int, heatmapDaysPerWeek)
		for d := range days {
			if s.rng.Float64() < activityChance {
				days[d] = 1 + s.rng.IntN(maxIntensity)
			}
		}
		weeks[w] = days
	}

	return Heatmap{
		Year:        now.Year(),
		Weeks:       weeks,
		MonthLabels: monthLabels(now.Year()),
		DayLabels:   []string{"Mon", "Wed", "Fri"},
	}
}

func monthLabels(year int) []MonthLabel {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	labels := make([]MonthLabel, 0, 12)
	for m := time.January; m <= time.December; m++ {
		first := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		week := int(first.Sub(start).Hours()/24) / heatmapDaysPerWeek
		if week >= heatmapWeeks {
			week = heatmapWeeks - 1
		}
		labels = append(labels, MonthLabel{Week: week, Label: first.Format("Jan")})
	}
	return labels
}
