package ui

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

const (
	repositoryColumnHeaderConstant = "Repository"
	statusColumnHeaderConstant     = "Status"
	itemsColumnHeaderConstant      = "Items"
	failedColumnHeaderConstant     = "Failed"
	detailsColumnHeaderConstant    = "Details"
	totalFooterLabelConstant       = "Total"
)

// RepositoryRow is one line of the run summary table.
type RepositoryRow struct {
	Repository string
	Status     string
	Items      int
	Failed     int
	Details    string
}

// RenderRepositoryTable writes the per-repository summary with a totals footer.
func RenderRepositoryTable(writer io.Writer, rows []RepositoryRow) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader([]string{repositoryColumnHeaderConstant, statusColumnHeaderConstant, itemsColumnHeaderConstant, failedColumnHeaderConstant, detailsColumnHeaderConstant})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	totalItems := 0
	totalFailed := 0
	for _, row := range rows {
		table.Append([]string{row.Repository, row.Status, strconv.Itoa(row.Items), strconv.Itoa(row.Failed), row.Details})
		totalItems += row.Items
		totalFailed += row.Failed
	}
	table.SetFooter([]string{totalFooterLabelConstant, strconv.Itoa(len(rows)), strconv.Itoa(totalItems), strconv.Itoa(totalFailed), ""})

	table.Render()
}
