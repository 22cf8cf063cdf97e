// Package dashboard aggregates an organization's resources into the overview
// figures shown on the home screen.
package dashboard

import (
	"cmp"
	"math"
	"slices"

	"github.com/aliuyar1234/printshop/internal/materials"
	"github.com/aliuyar1234/printshop/internal/projects"
)

const (
	topMaterialCount   = 5
	recentProjectCount = 4
)

// MaterialUsage counts the projects using one material type.
type MaterialUsage struct {
	Material string `json:"material"`
	Projects int    `json:"projects"`
}

// Summary is the dashboard payload. Money is rounded to cents and stock is
// reported in kilograms.
type Summary struct {
	ClientCount       int                     `json:"client_count"`
	ActiveProjects    int                     `json:"active_projects"`
	CompletedProjects int                     `json:"completed_projects"`
	Revenue           float64                 `json:"revenue"`
	TotalStockKg      float64                 `json:"total_stock_kg"`
	TopMaterials      []materials.Material    `json:"top_materials"`
	RecentProjects    []projects.Project      `json:"recent_projects"`
	ProjectsByStatus  map[projects.Status]int `json:"projects_by_status"`
	MaterialUsage     []MaterialUsage         `json:"material_usage"`
	LowStock          []materials.Material    `json:"low_stock"`
}

// Summarize computes the dashboard figures. Revenue is the budget sum of
// completed projects. Material usage keeps first-seen order.
func Summarize(clientCount int, projs []projects.Project, mats []materials.Material) Summary {
	s := Summary{
		ClientCount: clientCount,
		ProjectsByStatus: map[projects.Status]int{
			projects.StatusQueued:     0,
			projects.StatusInProgress: 0,
			projects.StatusCompleted:  0,
		},
		MaterialUsage: []MaterialUsage{},
	}

	var revenue float64
	usage := map[string]int{}
	for _, p := range projs {
		s.ProjectsByStatus[p.Status]++
		switch p.Status {
		case projects.StatusInProgress:
			s.ActiveProjects++
		case projects.StatusCompleted:
			s.CompletedProjects++
			revenue += p.Budget
		}

		if p.Material == "" {
			continue
		}
		if i, ok := usage[p.Material]; ok {
			s.MaterialUsage[i].Projects++
			continue
		}
		usage[p.Material] = len(s.MaterialUsage)
		s.MaterialUsage = append(s.MaterialUsage, MaterialUsage{Material: p.Material, Projects: 1})
	}
	s.Revenue = roundCents(revenue)

	recent := slices.Clone(projs)
	slices.SortStableFunc(recent, func(a, b projects.Project) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	s.RecentProjects = head(recent, recentProjectCount)

	var stock float64
	for _, m := range mats {
		stock += m.StockGrams
	}
	s.TotalStockKg = roundCents(stock / 1000)

	top := slices.Clone(mats)
	slices.SortStableFunc(top, func(a, b materials.Material) int {
		return cmp.Compare(b.StockGrams, a.StockGrams)
	})
	s.TopMaterials = head(top, topMaterialCount)
	s.LowStock = materials.LowStock(mats)

	return s
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	if s == nil {
		return []T{}
	}
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
