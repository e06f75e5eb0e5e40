package dailyreport

import (
	"context"

	"dailyreport/infrastructure/reportapi"
	"dailyreport/reporting"
)

// Backend is what the report screen needs from the reporting API.
type Backend interface {
	reporting.Loader
	FilterOptions(ctx context.Context, groupID, projectID reporting.ID) ([]reportapi.Option, error)
}

// PageData feeds the report page.
type PageData struct {
	State   reporting.ViewState
	Rows    []reporting.Row
	Matrix  *reporting.PendingMatrix
	Message string

	ExportSlug string
	Detail     bool
	AnyOpen    bool

	Groups   []reportapi.Option
	Projects []reportapi.Option
	Lots     []reportapi.Option
}

// paramsForm is the date range form of the production tabs.
type paramsForm struct {
	View  string `validate:"omitempty,oneof=summary details group-details"`
	Start string `validate:"required,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// toggleForm addresses one node of the report tree.
type toggleForm struct {
	Level     string `validate:"required,oneof=process group project"`
	ProcessID string `validate:"required,max=64"`
	GroupID   string `validate:"max=64"`
	ProjectID string `validate:"max=64"`
}

type pendingFilterForm struct {
	GroupID   string `validate:"max=64"`
	ProjectID string `validate:"max=64"`
	LotNo     string `validate:"max=64"`
}

// summaryResponse is the JSON shape of summary.json.
type summaryResponse struct {
	Params   reporting.Params `json:"params"`
	Epoch    uint64           `json:"epoch"`
	ShowData bool             `json:"showData"`
	Error    string           `json:"error,omitempty"`
	Label    string           `json:"dateRange"`
	Export   string           `json:"export"`
	Rows     int              `json:"rows"`
}
