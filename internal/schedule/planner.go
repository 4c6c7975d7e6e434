package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const minutesPerDay = 24 * 60

// span is a half-open [start, end) minute range within one local day.
type span struct {
	start int
	end   int
}

func (a span) intersects(b span) bool {
	return a.start < b.end && b.start < a.end
}

// Planner computes bookable slots from working hours, per-date overrides,
// time off, and existing appointments. It is read-only and stateless per
// call; concurrent calls share nothing but the month cache.
type Planner struct {
	repo    Repository
	loc     *time.Location
	stepMin int
	cache   *MonthCache
}

func NewPlanner(repo Repository, loc *time.Location, stepMin int, cache *MonthCache) *Planner {
	return &Planner{
		repo:    repo,
		loc:     loc,
		stepMin: stepMin,
		cache:   cache,
	}
}

// SlotsForDay returns the ordered bookable start times for one staff
// member, one service variant, and one local date.
func (p *Planner) SlotsForDay(ctx context.Context, salonID, staffID, serviceID uuid.UUID, variantName, date string) ([]Slot, error) {
	variant, err := p.repo.GetServiceVariant(ctx, salonID, serviceID, variantName)
	if err != nil {
		return nil, fmt.Errorf("load service variant: %w", err)
	}
	return p.slotsForVariant(ctx, salonID, staffID, variant, date)
}

// SlotsForAnyStaff resolves the variant's single assigned staff member and
// delegates. It does not merge slots across multiple staff members.
func (p *Planner) SlotsForAnyStaff(ctx context.Context, salonID, serviceID uuid.UUID, variantName, date string) ([]Slot, error) {
	variant, err := p.repo.GetServiceVariant(ctx, salonID, serviceID, variantName)
	if err != nil {
		return nil, fmt.Errorf("load service variant: %w", err)
	}
	return p.slotsForVariant(ctx, salonID, variant.StaffID, variant, date)
}

func (p *Planner) slotsForVariant(ctx context.Context, salonID, staffID uuid.UUID, variant *ServiceVariant, date string) ([]Slot, error) {
	dayStart, dayNext, err := p.dayBounds(date)
	if err != nil {
		return nil, err
	}

	sched, err := p.repo.GetStaffSchedule(ctx, salonID, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff schedule: %w", err)
	}
	if !sched.Active {
		return nil, nil
	}

	booked, err := p.repo.ListBookedIntervals(ctx, salonID, staffID, dayStart, dayNext)
	if err != nil {
		return nil, fmt.Errorf("load booked intervals: %w", err)
	}

	day := p.buildDay(sched, booked, date, dayStart, dayNext)
	starts := day.fits(variant, p.stepMin, true)

	slots := make([]Slot, 0, len(starts))
	for _, startMin := range starts {
		slots = append(slots, Slot{
			StaffID: staffID,
			Start:   p.instant(date, startMin),
			End:     p.instant(date, startMin+variant.DurationMin),
		})
	}
	return slots, nil
}

// FullyBookedDays returns the YYYY-MM-DD dates in the given month on which
// the staff member cannot take any of their service variants. Past dates
// (before today, salon-local) always count as fully booked. Results are
// cached per (staff, month); the cache is a performance shortcut only,
// booking correctness rests on the lock plus the coordinator's DB re-check.
func (p *Planner) FullyBookedDays(ctx context.Context, salonID, staffID uuid.UUID, year int, month time.Month) ([]string, error) {
	cacheKey := monthKey(staffID, year, month)
	if days, ok := p.cache.Get(cacheKey); ok {
		return days, nil
	}

	sched, err := p.repo.GetStaffSchedule(ctx, salonID, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff schedule: %w", err)
	}

	variants, err := p.repo.ListVariantsForStaff(ctx, salonID, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff variants: %w", err)
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, p.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	booked, err := p.repo.ListBookedIntervals(ctx, salonID, staffID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("load booked intervals: %w", err)
	}

	today := time.Now().In(p.loc).Format(DateLayout)

	var days []string
	for d := monthStart; d.Before(monthEnd); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		if date < today {
			days = append(days, date)
			continue
		}

		// windows and exclusions are built once per day; the per-variant
		// loop below only re-pads the already-fetched intervals
		day := p.buildDay(sched, booked, date, d, d.AddDate(0, 0, 1))

		if !sched.Active || len(variants) == 0 || len(day.windows) == 0 || day.blocked {
			days = append(days, date)
			continue
		}

		open := false
		for i := range variants {
			if len(day.fits(&variants[i], p.stepMin, false)) > 0 {
				open = true
				break
			}
		}
		if !open {
			days = append(days, date)
		}
	}

	p.cache.Set(cacheKey, days)
	return days, nil
}

// InvalidateMonth drops the cached fully-booked result covering the given
// date, called after a booking lands in that month.
func (p *Planner) InvalidateMonth(staffID uuid.UUID, date string) {
	d, err := time.ParseInLocation(DateLayout, date, p.loc)
	if err != nil {
		return
	}
	p.cache.Invalidate(monthKey(staffID, d.Year(), d.Month()))
}

// dayContext is one staff member's resolved availability for one local day.
type dayContext struct {
	windows []WorkingWindow
	timeOff []span
	booked  []span
	blocked bool // whole day excluded by time off
}

// fits returns candidate start minutes for the variant, stepping the
// working windows on the planner grid. When all is false it stops after
// the first fit (enough for the fully-booked check).
func (d *dayContext) fits(v *ServiceVariant, stepMin int, all bool) []int {
	if d.blocked || v.DurationMin <= 0 {
		return nil
	}

	exclusions := make([]span, 0, len(d.timeOff)+len(d.booked))
	exclusions = append(exclusions, d.timeOff...)
	for _, b := range d.booked {
		exclusions = append(exclusions, span{
			start: b.start - v.BufferBeforeMin,
			end:   b.end + v.BufferAfterMin,
		})
	}

	var starts []int
	for _, w := range d.windows {
		for t := w.StartMin; t+v.DurationMin <= w.EndMin; t += stepMin {
			candidate := span{start: t, end: t + v.DurationMin}
			free := true
			for _, ex := range exclusions {
				if candidate.intersects(ex) {
					free = false
					break
				}
			}
			if free {
				starts = append(starts, t)
				if !all {
					return starts
				}
			}
		}
	}
	sort.Ints(starts)
	return starts
}

// buildDay resolves working windows (override replaces the weekly rule
// when present, even when empty) and converts time off and appointments
// into minute spans clamped to the local day.
func (p *Planner) buildDay(sched *StaffSchedule, booked []BookedInterval, date string, dayStart, dayNext time.Time) dayContext {
	var day dayContext

	if windows, ok := sched.Overrides[date]; ok {
		day.windows = sortedWindows(windows)
	} else {
		day.windows = sortedWindows(sched.Weekly[dayStart.Weekday()])
	}

	for _, to := range sched.TimeOff {
		if to.Start.Equal(to.End) {
			if to.Start.In(p.loc).Format(DateLayout) == date {
				day.blocked = true
			}
			continue
		}
		if sp, ok := p.clamp(to.Start, to.End, dayStart, dayNext); ok {
			day.timeOff = append(day.timeOff, sp)
		}
	}

	for _, b := range booked {
		if b.Status == "cancelled" {
			continue
		}
		if sp, ok := p.clamp(b.Start, b.End, dayStart, dayNext); ok {
			day.booked = append(day.booked, sp)
		}
	}

	return day
}

// clamp converts an absolute interval to wall-clock minutes within
// [dayStart, dayNext), reporting false when it misses the day entirely.
func (p *Planner) clamp(start, end time.Time, dayStart, dayNext time.Time) (span, bool) {
	if !end.After(dayStart) || !start.Before(dayNext) {
		return span{}, false
	}

	sp := span{start: 0, end: minutesPerDay}
	if start.After(dayStart) {
		local := start.In(p.loc)
		sp.start = local.Hour()*60 + local.Minute()
	}
	if end.Before(dayNext) {
		local := end.In(p.loc)
		sp.end = local.Hour()*60 + local.Minute()
	}
	return sp, true
}

func (p *Planner) dayBounds(date string) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, p.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return d, d.AddDate(0, 0, 1), nil
}

// instant converts a date plus wall-clock minutes into an absolute time in
// the salon's timezone.
func (p *Planner) instant(date string, min int) time.Time {
	d, _ := time.ParseInLocation(DateLayout, date, p.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), min/60, min%60, 0, 0, p.loc)
}

func sortedWindows(windows []WorkingWindow) []WorkingWindow {
	out := make([]WorkingWindow, len(windows))
	copy(out, windows)
	sort.Slice(out, func(i, j int) bool { return out[i].StartMin < out[j].StartMin })
	return out
}
