package pdf

import (
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2/pkg/consts/align"

	"github.com/smallbiznis/ecoscape/internal/config"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
)

func customerReportDocument(company config.CompanyProfile, report customerdomain.CustomerReport) document {
	doc := document{
		Company:     company,
		Title:       "Customer Report",
		Period:      formatPeriod(report.ReportPeriod.StartDate, report.ReportPeriod.EndDate),
		GeneratedAt: report.GeneratedAt,
		Landscape:   true,
		Columns: []column{
			{Title: "Reg. No", Width: 1},
			{Title: "Name", Width: 2},
			{Title: "Email", Width: 3},
			{Title: "Phone", Width: 1},
			{Title: "Status", Width: 1},
			{Title: "Loyalty", Width: 1},
			{Title: "Services", Width: 1, Align: align.Right},
			{Title: "Total Spent", Width: 1, Align: align.Right},
			{Title: "Registered", Width: 1, Align: align.Right},
		},
	}

	var spent float64
	for _, c := range report.Customers {
		registered := c.RegistrationDate
		doc.Rows = append(doc.Rows, []string{
			c.RegistrationNumber,
			c.Name,
			c.Email,
			c.Phone,
			string(c.Status),
			string(c.LoyaltyStatus),
			strconv.Itoa(c.ServiceCount),
			formatMoney(c.TotalSpent),
			formatDate(&registered),
		})
		spent += c.TotalSpent
	}

	doc.Summary = []summaryLine{
		{Label: "Customers", Value: strconv.FormatInt(report.TotalCount, 10)},
		{Label: "Total spent", Value: formatMoney(spent)},
	}
	if report.Truncated {
		doc.Footnote = fmt.Sprintf("Showing the first %d of %d customers.", len(report.Customers), report.TotalCount)
	}
	return doc
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
