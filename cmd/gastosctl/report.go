package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"gastos/internal/amqp"
	"gastos/internal/core"
)

type expenseView struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"nome" yaml:"nome"`
	Description string `json:"descricao,omitempty" yaml:"descricao,omitempty"`
	Amount      string `json:"valor" yaml:"valor"`
	Group       string `json:"grupo" yaml:"grupo"`
	Start       string `json:"dataInicio,omitempty" yaml:"dataInicio,omitempty"`
	End         string `json:"dataFim,omitempty" yaml:"dataFim,omitempty"`
	Installment string `json:"parcela,omitempty" yaml:"parcela,omitempty"`
}

type groupSummary struct {
	Name     string        `json:"nome" yaml:"nome"`
	Total    string        `json:"total" yaml:"total"`
	Expenses []expenseView `json:"gastos" yaml:"gastos"`
}

type groupView struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"nome" yaml:"nome"`
}

type summaryReport struct {
	Period string         `json:"periodo,omitempty" yaml:"periodo,omitempty"`
	Total  string         `json:"total" yaml:"total"`
	Groups []groupSummary `json:"grupos" yaml:"grupos"`
}

func toExpenseView(e core.Expense) expenseView {
	v := expenseView{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Amount:      e.Amount.StringFixed(2),
		Group:       e.Group.Name,
		Start:       e.StartDate.String(),
		Installment: e.Installment,
	}
	if e.HasEndDate() {
		v.End = e.EndDate.String()
	}
	return v
}

// buildSummary groups and totals expenses the same way the web page does.
func buildSummary(period string, expenses []core.Expense) summaryReport {
	grouped := core.GroupExpenses(expenses)
	totals, grand := core.CalculateTotals(grouped)

	report := summaryReport{Period: period, Total: grand.StringFixed(2), Groups: []groupSummary{}}
	for _, name := range grouped.Names() {
		g := groupSummary{Name: name, Total: totals[name].StringFixed(2)}
		for _, e := range grouped.Expenses(name) {
			g.Expenses = append(g.Expenses, toExpenseView(e))
		}
		report.Groups = append(report.Groups, g)
	}
	return report
}

// encode writes v as JSON or YAML; it reports false for the table format.
func encode(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

var (
	headerColor = color.New(color.Bold)
	groupColor  = color.New(color.FgCyan, color.Bold)
	totalColor  = color.New(color.FgGreen, color.Bold)
	mutedColor  = color.New(color.Faint)
)

func printSummary(w io.Writer, format string, report summaryReport) error {
	if done, err := encode(w, format, report); done {
		return err
	}

	title := "Todos os gastos"
	if report.Period != "" {
		title = "Gastos de " + report.Period
	}
	headerColor.Fprintln(w, title)

	if len(report.Groups) == 0 {
		mutedColor.Fprintln(w, "Nenhum gasto encontrado.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range report.Groups {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "%s\t\t%s\n", groupColor.Sprint(g.Name), brl(g.Total))
		for _, e := range g.Expenses {
			fmt.Fprintf(tw, "  #%d %s\t%s\t%s\n", e.ID, e.Name, brl(e.Amount), period(e))
		}
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "%s\t\t%s\n", totalColor.Sprint("Total"), totalColor.Sprint(brl(report.Total)))
	return tw.Flush()
}

func printExpenses(w io.Writer, format string, expenses []core.Expense) error {
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, toExpenseView(e))
	}
	if done, err := encode(w, format, views); done {
		return err
	}
	if len(views) == 0 {
		mutedColor.Fprintln(w, "Nenhum gasto encontrado.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headerColor.Sprint("ID\tNOME\tGRUPO\tVALOR\tPERÍODO\tPARCELA"))
	for _, e := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Group, brl(e.Amount), period(e), e.Installment)
	}
	return tw.Flush()
}

func printGroups(w io.Writer, format string, groups []core.ExpenseGroup) error {
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView{ID: g.ID, Name: g.Name})
	}
	if done, err := encode(w, format, views); done {
		return err
	}
	if len(views) == 0 {
		mutedColor.Fprintln(w, "Nenhum grupo cadastrado.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headerColor.Sprint("ID\tNOME"))
	for _, g := range views {
		fmt.Fprintf(tw, "%d\t%s\n", g.ID, g.Name)
	}
	return tw.Flush()
}

func brl(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return core.FormatBRL(d)
}

func period(e expenseView) string {
	switch {
	case e.Start == "":
		return "-"
	case e.End == "":
		return e.Start + " →"
	default:
		return e.Start + " → " + e.End
	}
}

func printEvent(w io.Writer, format string, e amqp.GastoEvent) error {
	if done, err := encode(w, format, e); done {
		return err
	}
	line := fmt.Sprintf("%s  %-16s #%d %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Type, e.ID, e.Name)
	if e.Amount != nil {
		line += "  " + core.FormatBRL(*e.Amount)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
