package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	event_postgres "github.com/code-payments/coupon-server/pkg/coupon/data/event/postgres"
	"github.com/code-payments/coupon-server/pkg/database/query"
)

func init() {
	couponCmd.AddCommand(couponEventsCmd)

	couponEventsCmd.Flags().Uint64("limit", 50, "Maximum number of events to print")
	couponEventsCmd.Flags().String("cursor", "", "Cursor returned by a previous page")
	couponEventsCmd.Flags().String("order", "asc", "Page direction, asc or desc")
}

var couponEventsCmd = &cobra.Command{
	Use:   "events MINT",
	Short: "Page through the recorded transaction history of a coupon",
	Args:  cobra.ExactArgs(1),
	RunE:  runCouponEvents,
}

type eventView struct {
	Type         string    `json:"type"`
	Wallet       string    `json:"wallet"`
	Counterparty string    `json:"counterparty,omitempty"`
	Signature    string    `json:"signature"`
	Amount       uint64    `json:"amount"`
	Fee          uint64    `json:"fee"`
	CreatedAt    time.Time `json:"createdAt"`
}

type eventPage struct {
	Mint       string       `json:"mint"`
	Events     []*eventView `json:"events"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func runCouponEvents(cmd *cobra.Command, args []string) error {
	if _, err := parseAddress("mint", args[0]); err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetUint64("limit")
	rawCursor, _ := cmd.Flags().GetString("cursor")
	rawOrder, _ := cmd.Flags().GetString("order")

	cursor, err := query.CursorFromBase58(rawCursor)
	if err != nil {
		return errors.Wrap(err, "invalid cursor")
	}
	order, err := query.ToOrdering(rawOrder)
	if err != nil {
		return err
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.requirePostgres(); err != nil {
		return err
	}

	page, err := listEvents(
		e.context(cmd.Context()),
		event_postgres.New(e.db),
		args[0],
		query.WithLimit(limit),
		query.WithCursor(cursor),
		query.WithDirection(order),
	)
	if err != nil {
		return err
	}

	e.log.WithField("mint", args[0]).WithField("count", len(page.Events)).Debug("listed coupon events")
	return printJSON(cmd.OutOrStdout(), page)
}

// listEvents returns one page of a mint's history. NextCursor is only set
// when the page is full, so a short page marks the end.
func listEvents(ctx context.Context, store event.Store, mint string, opts ...query.Option) (*eventPage, error) {
	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	page := &eventPage{
		Mint:   mint,
		Events: []*eventView{},
	}

	records, err := store.GetAllByMint(ctx, mint, req.Cursor, req.Limit, req.SortBy)
	if err == event.ErrEventNotFound {
		return page, nil
	} else if err != nil {
		return nil, err
	}

	for _, record := range records {
		view := &eventView{
			Type:      record.Type.String(),
			Wallet:    record.Wallet,
			Signature: record.Signature,
			Amount:    record.Amount,
			Fee:       record.Fee,
			CreatedAt: record.CreatedAt,
		}
		if record.Counterparty != nil {
			view.Counterparty = *record.Counterparty
		}
		page.Events = append(page.Events, view)
	}

	if uint64(len(records)) == req.Limit {
		page.NextCursor = query.ToCursor(records[len(records)-1].Id).ToBase58()
	}
	return page, nil
}
