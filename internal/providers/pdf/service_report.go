package pdf

import (
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2/pkg/consts/align"

	"github.com/smallbiznis/ecoscape/internal/config"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
)

func serviceReportDocument(company config.CompanyProfile, report maintenancedomain.Report) document {
	doc := document{
		Company:     company,
		Title:       "Service Report",
		Period:      formatPeriod(report.ReportPeriod.StartDate, report.ReportPeriod.EndDate),
		GeneratedAt: report.GeneratedAt,
		Landscape:   true,
		Columns: []column{
			{Title: "Request", Width: 2},
			{Title: "Customer", Width: 2},
			{Title: "Service", Width: 2},
			{Title: "Priority", Width: 1},
			{Title: "Status", Width: 1},
			{Title: "Completed", Width: 2, Align: align.Right},
			{Title: "Amount", Width: 2, Align: align.Right},
		},
	}

	for _, r := range report.Requests {
		customer := "-"
		if r.Customer != nil {
			customer = r.Customer.Name
		}
		doc.Rows = append(doc.Rows, []string{
			r.RequestNumber,
			customer,
			string(r.ServiceType),
			string(r.Priority),
			string(r.Status),
			formatDate(r.CompletedDate),
			formatMoney(r.ChargedAmount()),
		})
	}

	doc.Summary = []summaryLine{
		{Label: "Requests", Value: strconv.Itoa(report.TotalCount)},
		{Label: "Revenue", Value: formatMoney(report.TotalRevenue)},
	}
	filters := nonEmpty(report.Filters.Status, report.Filters.ServiceType)
	if len(filters) > 0 {
		doc.Footnote = "Filtered by " + strings.Join(filters, ", ") + "."
	}
	return doc
}
