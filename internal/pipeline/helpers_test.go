package pipeline

import (
	"time"

	"shrimp/domain/schema"
)

// newTestSchema builds a small but fully canonical manifest: one family, two
// line groups, the full 7-slot client snapshot.
func newTestSchema() *schema.Schema {
	sch := &schema.Schema{
		Version:    "test",
		Families:   []string{"CLASSIC"},
		LineGroups: []string{"SEEDING", "VOLUMA"},
		Clients: []schema.Client{
			{Code: 2100001, DisplayName: "Camaronera Uno"},
			{Code: 2100002, DisplayName: "Camaronera Dos"},
			{Code: 2100003, DisplayName: "Camaronera Tres"},
			{Code: 2100004, DisplayName: "Camaronera Cuatro"},
			{Code: 2100005, DisplayName: "Camaronera Cinco"},
			{Code: 2100006, DisplayName: "Camaronera Seis"},
			{Code: 2100007, DisplayName: "Camaronera Siete"},
		},
	}
	sales := sch.SalesColumns()
	share := sch.ShareColumns()

	sch.ColumnsOrder = append(append(append(append(
		append([]string{}, sales...), share...), ExportColumns...), RawMaterialColumns...),
		"30-40 (29 g)", "40-50 (23 g)", "50-60 (18 g)", "60-70 (15 g)", "70-80 (13 g)", "80-100 (11 g)")
	sch.ColumnsOut = sales
	sch.ColumnsMean = append(append([]string{}, share...),
		"30-40 (29 g)", "40-50 (23 g)", "50-60 (18 g)", "60-70 (15 g)", "70-80 (13 g)", "80-100 (11 g)")
	return sch
}

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
