// Package importer backfills orders from a platform CSV order export.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ordersvc "luminix/internal/service/order"
)

// OrderStore persists one trusted order payload.
type OrderStore interface {
	Store(ctx context.Context, p ordersvc.Payload) (ordersvc.Result, error)
}

// Stats counts what a run did.
type Stats struct {
	Imported int
	Dropped  int
	// Skipped orders have no platform id and cannot be keyed like their webhook.
	Skipped  int
}

const exportTimeLayout = "2006-01-02 15:04:05 -0700"

// CSVImporter reads an order export where each order spans one row per line item.
// Continuation rows repeat the order name and leave order-level columns blank.
type CSVImporter struct {
	reader *csv.Reader
	store  OrderStore
}

func NewCSVImporter(r io.Reader, store OrderStore) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	return &CSVImporter{reader: csvr, store: store}
}

// Run parses rows and stores orders grouped by order name.
func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range []string{"name", "id"} {
		if _, ok := index[col]; !ok {
			return stats, fmt.Errorf("read headers: missing %q column", col)
		}
	}

	var current *ordersvc.Payload
	flush := func() error {
		if current == nil {
			return nil
		}
		if current.ID == "" {
			stats.Skipped++
			current = nil
			return nil
		}
		res, err := i.store.Store(ctx, *current)
		if err != nil {
			return fmt.Errorf("store order %q: %w", current.Name, err)
		}
		if res.Outcome == ordersvc.Dropped {
			stats.Dropped++
		} else {
			stats.Imported++
		}
		current = nil
		return nil
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row: %w", err)
		}
		name := pick(record, index, "name")
		if name == "" {
			continue
		}
		if current == nil || current.Name != name {
			if err := flush(); err != nil {
				return stats, err
			}
			p := parseOrder(record, index)
			current = &p
		}
		if li, ok := parseLineItem(record, index, len(current.LineItems)); ok {
			current.LineItems = append(current.LineItems, li)
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func parseOrder(record []string, index map[string]int) ordersvc.Payload {
	name := pick(record, index, "name")
	p := ordersvc.Payload{
		ID:                ordersvc.FlexID(pick(record, index, "id")),
		Name:              name,
		Email:             pick(record, index, "email"),
		TotalPrice:        pick(record, index, "total"),
		Currency:          pick(record, index, "currency"),
		FinancialStatus:   pick(record, index, "financial status"),
		FulfillmentStatus: pick(record, index, "fulfillment status"),
		ProcessedAt:       exportTime(firstOf(record, index, "paid at", "created at")),
	}
	if phone := pick(record, index, "phone"); phone != "" {
		p.Customer = &ordersvc.Person{Email: p.Email, Phone: phone}
	}
	p.BillingAddress = address(record, index, "billing")
	p.ShippingAddress = address(record, index, "shipping")
	return p
}

func parseLineItem(record []string, index map[string]int, n int) (ordersvc.LineItem, bool) {
	title := pick(record, index, "lineitem name")
	if title == "" {
		return ordersvc.LineItem{}, false
	}
	qty, _ := strconv.Atoi(pick(record, index, "lineitem quantity"))
	id := pick(record, index, "lineitem sku")
	if id == "" {
		id = strconv.Itoa(n + 1)
	}
	return ordersvc.LineItem{
		ID:       ordersvc.FlexID(id),
		Title:    title,
		Quantity: qty,
		Price:    pick(record, index, "lineitem price"),
	}, true
}

var addressColumns = map[string]string{
	"name":     "name",
	"phone":    "phone",
	"address1": "address1",
	"address2": "address2",
	"city":     "city",
	"zip":      "zip",
	"province": "province",
	"country":  "country",
}

// address collects "<prefix> <field>" columns into the webhook's address object.
func address(record []string, index map[string]int, prefix string) json.RawMessage {
	out := map[string]string{}
	for col, field := range addressColumns {
		if v := pick(record, index, prefix+" "+col); v != "" {
			out[field] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return raw
}

// exportTime converts the export's timestamp format to RFC3339; unparsable values become "".
func exportTime(v string) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse(exportTimeLayout, v)
	if err != nil {
		if _, rerr := time.Parse(time.RFC3339, v); rerr == nil {
			return v
		}
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func firstOf(record []string, index map[string]int, keys ...string) string {
	for _, k := range keys {
		if v := pick(record, index, k); v != "" {
			return v
		}
	}
	return ""
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
