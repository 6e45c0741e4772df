package interval

import "github.com/armon/go-metrics/prometheus"

var Gauges = []prometheus.GaugeDefinition{
	{
		Name: []string{"clock_synchronized"},
		Help: "This will be either 0 or 1 depending on whether the system clock was readable on a Runner's most recent scheduling attempt.",
	},
}

var Counters = []prometheus.CounterDefinition{
	{
		Name: []string{"boundaries_elapsed"},
		Help: "This will be a count of the interval boundaries that have elapsed, across Poll and Delay evaluations.",
	},
	{
		Name: []string{"clock_unavailable"},
		Help: "This will be a count of the evaluations that failed because the system clock was unavailable or not set.",
	},
}

var Summaries = []prometheus.SummaryDefinition{
	{
		Name: []string{"delay_duration"},
		Help: "This will be a sample of the time spent suspended waiting for the next interval boundary.",
	},
	{
		Name: []string{"task_duration"},
		Help: "This will be a sample of the time it takes a Runner's task to complete at each boundary.",
	},
}
