package models

import "time"

// MetricRevenue 对比查询使用的指标名
const MetricRevenue = "revenue"

// Period 指标统计周期 [Start, End]
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ComparisonEntry 单个诊所在一个周期内的指标快照（只读，由指标仓库产出）
// 各 *VariationPercentage 为与上一周期相比的百分比变化
type ComparisonEntry struct {
	ClinicID                       string  `json:"clinic_id" db:"clinic_id"`
	ClinicName                     string  `json:"clinic_name" db:"clinic_name"`
	Revenue                        float64 `json:"revenue" db:"revenue"`
	RevenueVariationPercentage     float64 `json:"revenue_variation_percentage" db:"revenue_variation_percentage"`
	Appointments                   int     `json:"appointments" db:"appointments"`
	AppointmentsVariationPercentage float64 `json:"appointments_variation_percentage" db:"appointments_variation_percentage"`
	ActivePatients                 int     `json:"active_patients" db:"active_patients"`
	OccupancyRate                  float64 `json:"occupancy_rate" db:"occupancy_rate"` // 0..1
	Satisfaction                   float64 `json:"satisfaction" db:"satisfaction"`
}

// EstimatePreviousValue 根据当前值与环比变化百分比估算上一周期的值
// previous = current / (1 + variationPct/100)；分母为 0 时返回 nil（避免除零）
func EstimatePreviousValue(current, variationPercentage float64) *float64 {
	denominator := 1 + variationPercentage/100
	if denominator == 0 {
		return nil
	}
	previous := current / denominator
	return &previous
}
