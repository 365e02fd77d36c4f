package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tablepos/api/internal/posclient"
)

// resolveTable accepts a table UUID or a table name (case-insensitive).
// Names are looked up in the cached table list, refreshed once on a miss.
func (a *App) resolveTable(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if id, ok := findTable(a.manager.Tables(), ref); ok {
		return id, nil
	}
	if err := a.manager.RefreshTables(ctx); err != nil {
		return uuid.Nil, err
	}
	if id, ok := findTable(a.manager.Tables(), ref); ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("no table named %q", ref)
}

func (a *App) resolveTables(ctx context.Context, refs []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		id, err := a.resolveTable(ctx, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func findTable(tables []posclient.DiningTable, name string) (uuid.UUID, bool) {
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) {
			return t.ID, true
		}
	}
	return uuid.Nil, false
}

// resolveLine accepts a full line UUID or a unique prefix of one among lines.
func resolveLine(lines []posclient.OrderDetail, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	ref = strings.ToLower(ref)
	var match uuid.UUID
	n := 0
	for _, d := range lines {
		if strings.HasPrefix(d.ID.String(), ref) {
			match = d.ID
			n++
		}
	}
	switch {
	case n == 0:
		return uuid.Nil, fmt.Errorf("no item matches %q", ref)
	case n > 1:
		return uuid.Nil, fmt.Errorf("%q matches %d items, use more characters", ref, n)
	}
	return match, nil
}

func (a *App) resolveOrderLine(ref string) (uuid.UUID, error) {
	var lines []posclient.OrderDetail
	if o := a.manager.Order(); o != nil {
		lines = o.Details
	}
	return resolveLine(lines, ref)
}
