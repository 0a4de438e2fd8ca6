package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
)

// CronEvaluator resolves custom expressions with the standard 5-field cron
// syntax plus descriptors (@daily, @every 4h, ...).
type CronEvaluator struct {
	parser cron.Parser
}

func NewCronEvaluator() *CronEvaluator {
	return &CronEvaluator{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (e *CronEvaluator) Next(expression string, from time.Time) (time.Time, error) {
	sched, err := e.parser.Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
