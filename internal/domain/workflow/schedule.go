package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

var weekDays = map[string]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

// Validate checks the schedule fields a client may submit.
func (o RunOptions) Validate(ctx context.Context) error {
	fail := func(msg string) error {
		return apperrors.New(ctx, apperrors.LayerDomain, apperrors.ErrorTypeValidation, msg, nil)
	}

	switch o.RunVariant {
	case VariantAuto, VariantManual, "":
	default:
		return fail(fmt.Sprintf("unknown run variant %q", o.RunVariant))
	}
	// Manual workflows only fire through the run endpoint and carry no
	// cadence to check.
	if o.RunVariant == VariantManual {
		return nil
	}

	if o.Minute < 0 || o.Minute > 59 {
		return fail("minute must be between 0 and 59")
	}
	switch o.RepeatEvery {
	case RepeatHourly:
		return nil
	case RepeatWeekly:
		if _, ok := weekDays[strings.ToLower(o.WeekDay)]; !ok {
			return fail(fmt.Sprintf("unknown week day %q", o.WeekDay))
		}
		fallthrough
	case RepeatDaily:
		if o.Hour < 1 || o.Hour > 12 {
			return fail("hour must be between 1 and 12")
		}
		switch strings.ToUpper(o.Meridiem) {
		case "AM", "PM":
			return nil
		default:
			return fail("meridiem must be AM or PM")
		}
	default:
		return fail(fmt.Sprintf("unknown repeat cadence %q", o.RepeatEvery))
	}
}

// CronSpec renders the schedule as a five-field cron expression. The 12-hour
// clock folds into 24-hour form: 12 AM is hour 0, 12 PM stays 12.
func (o RunOptions) CronSpec() string {
	switch o.RepeatEvery {
	case RepeatHourly:
		return fmt.Sprintf("%d * * * *", o.Minute)
	case RepeatDaily:
		return fmt.Sprintf("%d %d * * *", o.Minute, o.hour24())
	case RepeatWeekly:
		return fmt.Sprintf("%d %d * * %d", o.Minute, o.hour24(), weekDays[strings.ToLower(o.WeekDay)])
	default:
		return ""
	}
}

// DueAt reports whether the schedule fires on the minute containing t.
// Manual-variant workflows are never due.
func (o RunOptions) DueAt(t time.Time) bool {
	if o.RunVariant == VariantManual {
		return false
	}
	if t.Minute() != o.Minute {
		return false
	}
	switch o.RepeatEvery {
	case RepeatHourly:
		return true
	case RepeatDaily:
		return t.Hour() == o.hour24()
	case RepeatWeekly:
		return t.Hour() == o.hour24() && int(t.Weekday()) == weekDays[strings.ToLower(o.WeekDay)]
	default:
		return false
	}
}

func (o RunOptions) hour24() int {
	hour := o.Hour % 12
	if strings.EqualFold(o.Meridiem, "PM") {
		hour += 12
	}
	return hour
}
