package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/core"
	"gastos/internal/log"
)

func monthFlag(value string) (core.Period, error) {
	if value == "" {
		return core.CurrentPeriod(time.Now()), nil
	}
	p, err := core.ParseMonthInput(value)
	if err != nil {
		return core.Period{}, fmt.Errorf("mês inválido %q, use AAAA-MM", value)
	}
	return p, nil
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var month string
	var all bool

	cmd := &cobra.Command{
		Use:     "resumo",
		Short:   "Gastos do mês agrupados por grupo, com totais",
		Example: "  gastosctl resumo --mes 2024-03\n  gastosctl resumo --todos -o yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if all {
				expenses, err := client.ListAllExpenses(ctx)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), opts.output, buildSummary("", expenses))
			}

			p, err := monthFlag(month)
			if err != nil {
				return err
			}
			expenses, err := client.ListExpenses(ctx, p)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), opts.output, buildSummary(p.String(), expenses))
		},
	}
	cmd.Flags().StringVar(&month, "mes", "", "Mês no formato AAAA-MM (padrão: mês atual)")
	cmd.Flags().BoolVar(&all, "todos", false, "Resumo de todos os gastos, sem filtro de mês")
	cmd.MarkFlagsMutuallyExclusive("mes", "todos")
	return cmd
}

func newExpensesCmd(opts *rootOptions) *cobra.Command {
	var month string
	var all bool

	cmd := &cobra.Command{
		Use:   "gastos",
		Short: "Lista gastos do mês",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			var expenses []core.Expense
			if all {
				expenses, err = client.ListAllExpenses(cmd.Context())
			} else {
				var p core.Period
				if p, err = monthFlag(month); err != nil {
					return err
				}
				expenses, err = client.ListExpenses(cmd.Context(), p)
			}
			if err != nil {
				return err
			}
			return printExpenses(cmd.OutOrStdout(), opts.output, expenses)
		},
	}
	cmd.Flags().StringVar(&month, "mes", "", "Mês no formato AAAA-MM (padrão: mês atual)")
	cmd.Flags().BoolVar(&all, "todos", false, "Lista todos os gastos")
	cmd.MarkFlagsMutuallyExclusive("mes", "todos")
	return cmd
}

func newGroupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grupos",
		Short: "Lista os grupos de gastos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			groups, err := client.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			return printGroups(cmd.OutOrStdout(), opts.output, groups)
		},
	}
}

type expenseFlags struct {
	name        string
	description string
	amount      string
	group       string
	start       string
	end         string
	installment string
}

func (f expenseFlags) toExpense(groups []core.ExpenseGroup) (core.Expense, error) {
	group, err := findGroup(groups, f.group)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("valor inválido %q", f.amount)
	}
	e := core.Expense{
		Name:        f.name,
		Description: f.description,
		Amount:      amount,
		Group:       group,
		Installment: f.installment,
	}
	if f.start != "" {
		if e.StartDate, err = core.ParseDate(f.start); err != nil {
			return core.Expense{}, fmt.Errorf("data de início inválida %q, use AAAA-MM-DD", f.start)
		}
	}
	if e.EndDate, err = core.ParseOptionalDate(f.end); err != nil {
		return core.Expense{}, fmt.Errorf("data de fim inválida %q, use AAAA-MM-DD", f.end)
	}
	return e, nil
}

// findGroup matches ref against group ids first, then names ignoring case.
func findGroup(groups []core.ExpenseGroup, ref string) (core.ExpenseGroup, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, g := range groups {
			if g.ID == id {
				return g, nil
			}
		}
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, ref) {
			return g, nil
		}
	}
	return core.ExpenseGroup{}, fmt.Errorf("grupo %q não encontrado", ref)
}

func newCreateExpenseCmd(opts *rootOptions) *cobra.Command {
	var f expenseFlags

	cmd := &cobra.Command{
		Use:     "cadastrar-gasto",
		Short:   "Cadastra um gasto",
		Example: `  gastosctl cadastrar-gasto --nome Aluguel --valor 1500,00 --grupo Casa --inicio 2024-03-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			groups, err := client.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			e, err := f.toExpense(groups)
			if err != nil {
				return err
			}
			if err := client.CreateExpense(cmd.Context(), e); err != nil {
				return errors.New(backend.UserMessage(err, err.Error()))
			}
			totalColor.Fprintf(cmd.OutOrStdout(), "Gasto %q cadastrado (%s).\n", e.Name, core.FormatBRL(e.Amount))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.name, "nome", "", "Nome do gasto")
	flags.StringVar(&f.description, "descricao", "", "Descrição")
	flags.StringVar(&f.amount, "valor", "", "Valor, ex. 1234,56")
	flags.StringVar(&f.group, "grupo", "", "Grupo, por id ou nome")
	flags.StringVar(&f.start, "inicio", "", "Data de início AAAA-MM-DD")
	flags.StringVar(&f.end, "fim", "", "Data de fim AAAA-MM-DD (vazio: sem fim)")
	flags.StringVar(&f.installment, "parcela", "", "Parcela, ex. 1/12")
	_ = cmd.MarkFlagRequired("nome")
	_ = cmd.MarkFlagRequired("grupo")
	return cmd
}

func newCreateGroupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cadastrar-grupo NOME",
		Short: "Cadastra um grupo de gastos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			g := core.ExpenseGroup{Name: strings.TrimSpace(args[0])}
			if err := client.CreateGroup(cmd.Context(), g); err != nil {
				return errors.New(backend.UserMessage(err, err.Error()))
			}
			totalColor.Fprintf(cmd.OutOrStdout(), "Grupo %q cadastrado.\n", g.Name)
			return nil
		},
	}
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "eventos",
		Short: "Acompanha os eventos de alteração publicados pelo backend",
		Long: `Binds a queue to the backend's exchange and prints every change event
until interrupted. Requires AMQP_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL não configurada")
			}
			logger := log.New(log.Config{Component: log.ComponentCLI, Output: cmd.ErrOrStderr()})
			client, err := amqp.NewClient(opts.cfg.AMQPURL, opts.cfg.AMQPExchange, queue, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = client.Consume(ctx, func(_ context.Context, e amqp.GastoEvent) error {
				return printEvent(cmd.OutOrStdout(), opts.output, e)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&queue, "fila", "gastosctl.eventos", "Fila a declarar e consumir")
	return cmd
}
