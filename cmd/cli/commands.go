package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"github.com/google/subcommands"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/money"
)

var commands = []subcommands.Command{
	&accountsCmd{},
	&addAccountCmd{},
	&addPaymentMethodCmd{},
	&addCmd{},
	&txCmd{},
	&cancelCmd{},
	&deleteCmd{},
	&settleCmd{},
	&pendingCmd{},
	&upcomingCmd{},
	&catchUpCmd{},
	&budgetCmd{},
	&transferCmd{},
	&exportCmd{},
}

// dateOrToday parses s, defaulting to the ledger's today.
func dateOrToday(a *app.App, s string) (civil.Date, error) {
	if s == "" {
		return a.Engine.Today(), nil
	}
	return calendar.ParseDate(s)
}

func parseAmount(s string) (money.Amount, error) {
	if s == "" {
		return money.Amount{}, errors.New("-amount is required")
	}
	return money.Parse(s)
}

type accountsCmd struct{}

func (*accountsCmd) Name() string             { return "accounts" }
func (*accountsCmd) Synopsis() string         { return "list asset accounts and their balances" }
func (*accountsCmd) Usage() string            { return "cli accounts\n" }
func (*accountsCmd) SetFlags(f *flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		accounts, err := a.Engine.ListAccounts(ctx)
		if err != nil {
			return err
		}
		for _, acc := range accounts {
			fmt.Fprintf(out, "%s\t%-20s\t%12s\n", acc.ID, acc.Name, acc.Balance)
		}
		pms, err := a.Engine.ListPaymentMethods(ctx)
		if err != nil {
			return err
		}
		for _, pm := range pms {
			fmt.Fprintf(out, "  %s\t%-20s\t%s\t-> %s\n", pm.ID, pm.Name, pm.Type, pm.AssetAccountID)
		}
		return nil
	})
}

type addAccountCmd struct {
	name    string
	opening string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create an asset account" }
func (*addAccountCmd) Usage() string {
	return `cli add-account -name <name> [-opening <amount>]
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account name.")
	f.StringVar(&c.opening, "opening", "0", "Opening balance.")
}

func (c *addAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	opening, err := money.Parse(c.opening)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		acc, err := a.Engine.CreateAccount(ctx, c.name, opening)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, acc.ID)
		return nil
	})
}

type addPaymentMethodCmd struct {
	name       string
	typ        string
	account    string
	closing    int
	withdrawal int
}

func (*addPaymentMethodCmd) Name() string     { return "add-payment-method" }
func (*addPaymentMethodCmd) Synopsis() string { return "create a payment method linked to an account" }
func (*addPaymentMethodCmd) Usage() string {
	return `cli add-payment-method -name <name> -type <type> -account <id> [-closing <day> -withdrawal <day>]

  Types: credit_card, debit_card, e_money, cash, bank_transfer. Credit cards
  need a closing day and a withdrawal day (1-31).
`
}

func (c *addPaymentMethodCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Payment method name.")
	f.StringVar(&c.typ, "type", string(domain.PaymentCash), "Payment method type.")
	f.StringVar(&c.account, "account", "", "Linked asset account id.")
	f.IntVar(&c.closing, "closing", 0, "Credit card closing day.")
	f.IntVar(&c.withdrawal, "withdrawal", 0, "Credit card withdrawal day.")
}

func (c *addPaymentMethodCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		pm, err := a.Engine.CreatePaymentMethod(ctx, domain.PaymentMethod{
			Name:           c.name,
			Type:           domain.PaymentMethodType(c.typ),
			AssetAccountID: c.account,
			ClosingDay:     c.closing,
			WithdrawalDay:  c.withdrawal,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, pm.ID)
		return nil
	})
}

type addCmd struct {
	date     string
	amount   string
	typ      string
	pm       string
	category string
	account  string
	memo     string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `cli add -amount <amount> -pm <payment method id> [-type expense|income] [-d <date>] [-account <id>] [-category <id>] [-memo <text>]
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transaction date (defaults to today).")
	f.StringVar(&c.amount, "amount", "", "Amount, positive.")
	f.StringVar(&c.typ, "type", string(domain.TransactionExpense), "expense or income.")
	f.StringVar(&c.pm, "pm", "", "Payment method id.")
	f.StringVar(&c.category, "category", "", "Category id.")
	f.StringVar(&c.account, "account", "", "Asset account id (defaults to the payment method's account).")
	f.StringVar(&c.memo, "memo", "", "Free text memo.")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmount(c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		date, err := dateOrToday(a, c.date)
		if err != nil {
			return err
		}
		t, err := a.Engine.Create(ctx, domain.TransactionInput{
			Date:            date,
			Amount:          amount,
			Type:            domain.TransactionType(c.typ),
			PaymentMethodID: c.pm,
			CategoryID:      c.category,
			AssetAccountID:  c.account,
			Memo:            c.memo,
		})
		if err != nil {
			return err
		}
		state := "settled"
		if !t.Settled {
			state = "settles " + t.SettlementDate.String()
		}
		fmt.Fprintf(out, "%s (%s)\n", t.ID, state)
		return nil
	})
}

type txCmd struct {
	start string
	end   string
	typ   string
	pm    string
	all   bool
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions" }
func (*txCmd) Usage() string {
	return `cli tx [-s <start_date>] [-d <end_date>] [-type expense|income] [-pm <id>] [-all]
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "s", "", "First date, inclusive.")
	f.StringVar(&c.end, "d", "", "Last date, inclusive.")
	f.StringVar(&c.typ, "type", "", "Only this transaction type.")
	f.StringVar(&c.pm, "pm", "", "Only this payment method.")
	f.BoolVar(&c.all, "all", false, "Include cancelled transactions.")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter := domain.TransactionFilter{
		Type:             domain.TransactionType(c.typ),
		PaymentMethodID:  c.pm,
		IncludeCancelled: c.all,
	}
	var err error
	if c.start != "" {
		if filter.From, err = calendar.ParseDate(c.start); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}
	if c.end != "" {
		if filter.To, err = calendar.ParseDate(c.end); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		txs, err := a.Engine.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, t := range txs {
			mark := " "
			switch {
			case t.Cancelled:
				mark = "x"
			case !t.Settled:
				mark = "~"
			}
			fmt.Fprintf(out, "%s %s %-7s %12s  %s  %s\n", mark, t.Date, t.Type, t.Amount, t.ID, t.Memo)
		}
		return nil
	})
}

// idArg returns the single positional id argument.
func idArg(f *flag.FlagSet) (string, bool) {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one transaction id is required")
		return "", false
	}
	return f.Arg(0), true
}

type cancelCmd struct{}

func (*cancelCmd) Name() string             { return "cancel" }
func (*cancelCmd) Synopsis() string         { return "cancel a transaction and reverse its balance effect" }
func (*cancelCmd) Usage() string            { return "cli cancel <id>\n" }
func (*cancelCmd) SetFlags(f *flag.FlagSet) {}

func (*cancelCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := idArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		_, err := a.Engine.Cancel(ctx, id)
		return err
	})
}

type deleteCmd struct{}

func (*deleteCmd) Name() string             { return "delete" }
func (*deleteCmd) Synopsis() string         { return "delete an unsettled transaction" }
func (*deleteCmd) Usage() string            { return "cli delete <id>\n" }
func (*deleteCmd) SetFlags(f *flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := idArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return a.Engine.Delete(ctx, id)
	})
}

type settleCmd struct {
	date string
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "settle every transaction due on or before a date" }
func (*settleCmd) Usage() string {
	return `cli settle [-d <date>]
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Settle as of this date (defaults to today).")
}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		asOf, err := dateOrToday(a, c.date)
		if err != nil {
			return err
		}
		res, err := a.Engine.SettlePending(ctx, asOf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "settled %d transaction(s) as of %s, debited %s\n", len(res.Settled), res.AsOf, res.Debited)
		for _, failure := range res.Failed {
			fmt.Fprintf(out, "  failed %s: %s\n", failure.TransactionID, failure.Error)
		}
		return nil
	})
}

type pendingCmd struct{}

func (*pendingCmd) Name() string             { return "pending" }
func (*pendingCmd) Synopsis() string         { return "list transactions waiting for settlement" }
func (*pendingCmd) Usage() string            { return "cli pending\n" }
func (*pendingCmd) SetFlags(f *flag.FlagSet) {}

func (*pendingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		pending, err := a.Engine.PendingSettlements(ctx)
		if err != nil {
			return err
		}
		for _, t := range pending {
			fmt.Fprintf(out, "%s  %s %12s  %s\n", t.SettlementDate, t.Date, t.Amount, t.ID)
		}
		return nil
	})
}

type upcomingCmd struct {
	days int
}

func (*upcomingCmd) Name() string     { return "upcoming" }
func (*upcomingCmd) Synopsis() string { return "show settlement dates in the next days" }
func (*upcomingCmd) Usage() string {
	return `cli upcoming [-days <n>]
`
}

func (c *upcomingCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 7, "Look-ahead window in days.")
}

func (c *upcomingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		reminders, err := a.Engine.UpcomingSettlements(ctx, a.Engine.Today(), c.days)
		if err != nil {
			return err
		}
		for _, r := range reminders {
			fmt.Fprintf(out, "%s  %d transaction(s)  %s\n", r.Date, r.Count, r.Total)
		}
		return nil
	})
}

type catchUpCmd struct{}

func (*catchUpCmd) Name() string             { return "catch-up" }
func (*catchUpCmd) Synopsis() string         { return "fire recurring templates for every missed day" }
func (*catchUpCmd) Usage() string            { return "cli catch-up\n" }
func (*catchUpCmd) SetFlags(f *flag.FlagSet) {}

func (*catchUpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		res, err := a.Recurring.CatchUp(ctx, a.Engine.Today())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %d transaction(s) over %d day(s), checked through %s\n", res.Created(), len(res.Days), res.Watermark)
		return nil
	})
}

type budgetCmd struct {
	set string
}

func (*budgetCmd) Name() string     { return "budget" }
func (*budgetCmd) Synopsis() string { return "show or set the monthly budget" }
func (*budgetCmd) Usage() string {
	return `cli budget [-set <amount>]
`
}

func (c *budgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.set, "set", "", "New monthly budget.")
}

func (c *budgetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		if c.set != "" {
			amount, err := money.Parse(c.set)
			if err != nil {
				return err
			}
			if err := a.Engine.SetMonthlyBudget(ctx, amount); err != nil {
				return err
			}
		}
		budget, ok, err := a.Engine.MonthlyBudget(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "no monthly budget set")
			return nil
		}
		fmt.Fprintln(out, budget)
		return nil
	})
}

type transferCmd struct {
	kind   string
	date   string
	amount string
	from   string
	to     string
	toPM   string
	memo   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between accounts or onto a payment method" }
func (*transferCmd) Usage() string {
	return `cli transfer -kind account|cash_withdrawal|charge -from <account> (-to <account> | -to-pm <payment method>) -amount <amount> [-d <date>]
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", string(domain.TransferAccount), "Transfer kind.")
	f.StringVar(&c.date, "d", "", "Transfer date (defaults to today).")
	f.StringVar(&c.amount, "amount", "", "Amount, positive.")
	f.StringVar(&c.from, "from", "", "Source account id.")
	f.StringVar(&c.to, "to", "", "Destination account id.")
	f.StringVar(&c.toPM, "to-pm", "", "Destination payment method id.")
	f.StringVar(&c.memo, "memo", "", "Free text memo.")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmount(c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		date, err := dateOrToday(a, c.date)
		if err != nil {
			return err
		}
		t, err := a.Engine.CreateTransfer(ctx, domain.Transfer{
			Kind:              domain.TransferKind(c.kind),
			Date:              date,
			Amount:            amount,
			FromAccountID:     c.from,
			ToAccountID:       c.to,
			ToPaymentMethodID: c.toPM,
			Memo:              c.memo,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, t.ID)
		return nil
	})
}

type exportCmd struct {
	date string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a ledger snapshot to BigQuery" }
func (*exportCmd) Usage() string {
	return `cli -bq-project <project> export [-d <snapshot date>]
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Snapshot date (defaults to today).")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		snapshot, err := dateOrToday(a, c.date)
		if err != nil {
			return err
		}
		res, err := a.Export(ctx, snapshot)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %d row(s) for snapshot %s\n", res.Rows, res.Snapshot)
		return nil
	})
}
