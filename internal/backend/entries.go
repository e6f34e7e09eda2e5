package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tennisluv/internal/models"
)

// CreateEntryRequest books StartHour..EndHour (exclusive) on one court.
type CreateEntryRequest struct {
	Date        time.Time
	StartHour   int
	EndHour     int
	CourtID     int64
	EntryTypeID int64
}

func (r CreateEntryRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EntryDate   string `json:"entryDate"`
		StartHour   int    `json:"startHour"`
		EndHour     int    `json:"endHour"`
		CourtID     int64  `json:"tennisCourtId"`
		EntryTypeID int64  `json:"entryTypeId"`
	}{r.Date.Format(models.DateLayout), r.StartHour, r.EndHour, r.CourtID, r.EntryTypeID})
}

// DayResult holds the merged entries of all courts for one day.
// Failed lists courts whose fetch failed; they contribute no entries.
type DayResult struct {
	Date    time.Time
	Entries []models.Entry
	Failed  map[int64]error
}

func entryPath(courtID int64, day time.Time, hour int) string {
	return fmt.Sprintf("/api/entries/%d/%s/%d", courtID, day.Format(models.DateLayout), hour)
}

// ListEntries returns the entries of one court on one day.
func (c *Client) ListEntries(ctx context.Context, token string, courtID int64, day time.Time) ([]models.Entry, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/api/entries/%d/%s", courtID, day.Format(models.DateLayout))
	var entries []models.Entry
	if err := c.doGet(ctx, "list_entries", path, token, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].CourtID == 0 {
			entries[i].CourtID = courtID
		}
		if entries[i].Date.IsZero() {
			entries[i].Date = models.Day(day)
		}
	}
	return entries, nil
}

// ListDay fetches every court concurrently and waits for all of them. A court
// that fails is reported in Failed; an authentication failure fails the call.
func (c *Client) ListDay(ctx context.Context, token string, courts []models.Court, day time.Time) (*DayResult, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}

	type courtResult struct {
		entries []models.Entry
		err     error
	}
	results := make([]courtResult, len(courts))

	var wg sync.WaitGroup
	for i, court := range courts {
		wg.Add(1)
		go func(i int, courtID int64) {
			defer wg.Done()
			entries, err := c.ListEntries(ctx, token, courtID, day)
			results[i] = courtResult{entries: entries, err: err}
		}(i, court.ID)
	}
	wg.Wait()

	res := &DayResult{Date: models.Day(day)}
	for i, r := range results {
		if r.err != nil {
			if errors.Is(r.err, ErrAuthExpired) {
				return nil, r.err
			}
			if res.Failed == nil {
				res.Failed = make(map[int64]error)
			}
			res.Failed[courts[i].ID] = r.err
			continue
		}
		res.Entries = append(res.Entries, r.entries...)
	}
	sort.SliceStable(res.Entries, func(i, j int) bool {
		a, b := res.Entries[i], res.Entries[j]
		if a.StartHour != b.StartHour {
			return a.StartHour < b.StartHour
		}
		return a.CourtID < b.CourtID
	})
	if len(courts) > 0 && len(res.Failed) == len(courts) {
		// nothing usable, surface the first failure
		return res, res.Failed[courts[0].ID]
	}
	return res, nil
}

// CreateEntry books a contiguous range. The backend answers with the created
// entries, as a list or a single object depending on its version.
func (c *Client) CreateEntry(ctx context.Context, token string, req CreateEntryRequest) ([]models.Entry, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	if req.EndHour <= req.StartHour {
		req.EndHour = req.StartHour + 1
	}
	var raw json.RawMessage
	if err := c.doPost(ctx, "create_entry", "/api/entries", token, req, &raw); err != nil {
		return nil, err
	}
	return decodeEntries(raw)
}

func decodeEntries(raw json.RawMessage) ([]models.Entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []models.Entry
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one models.Entry
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, &APIError{kind: ErrServer, Message: fmt.Sprintf("decode create_entry response: %v", err)}
	}
	return []models.Entry{one}, nil
}

// UpdateEntryType changes the type of an existing entry. Entries without an id
// are addressed by their court, day and hour.
func (c *Client) UpdateEntryType(ctx context.Context, token string, e models.Entry, entryTypeID int64) (*models.Entry, error) {
	if err := c.checkToken(token); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/api/entries/%d", e.ID)
	if e.ID == 0 {
		path = entryPath(e.CourtID, e.Date, e.StartHour)
	}
	body := struct {
		EntryTypeID int64 `json:"entryTypeId"`
	}{entryTypeID}

	var updated models.Entry
	if err := c.doPut(ctx, "update_entry", path, token, body, &updated); err != nil {
		return nil, err
	}
	if updated.CourtID == 0 {
		updated = e
		updated.EntryTypeID = entryTypeID
		updated.EntryTypeName = ""
	}
	return &updated, nil
}

// DeleteEntry removes one entry, by id when it has one.
func (c *Client) DeleteEntry(ctx context.Context, token string, e models.Entry) error {
	if err := c.checkToken(token); err != nil {
		return err
	}
	path := fmt.Sprintf("/api/entries/%d", e.ID)
	if e.ID == 0 {
		path = entryPath(e.CourtID, e.Date, e.StartHour)
	}
	return c.doDelete(ctx, "delete_entry", path, token)
}

// ListCourts returns the club's courts, cached in Redis when configured.
func (c *Client) ListCourts(ctx context.Context, token string) ([]models.Court, error) {
	const cacheKey = "courts"
	var courts []models.Court
	if c.readCache(ctx, cacheKey, &courts) && len(courts) > 0 {
		return courts, nil
	}
	if err := c.doGet(ctx, "list_courts", "/api/tennis-courts", token, &courts); err != nil {
		return nil, err
	}
	sort.Slice(courts, func(i, j int) bool { return courts[i].ID < courts[j].ID })
	c.writeCache(ctx, cacheKey, courts)
	return courts, nil
}

// InvalidateCourts drops the cached court list.
func (c *Client) InvalidateCourts(ctx context.Context) {
	if c.redis != nil {
		_ = c.redis.Del(ctx, cachePrefix+"courts").Err()
	}
}
