package monitor

import "time"

type Status struct {
	Services   map[string]bool `json:"services"`
	Outbox     bool            `json:"outbox"`
	OutboxSize int             `json:"outbox_size"`
	LastCheck  time.Time       `json:"last_check"`
}

func (s Status) clone() Status {
	services := make(map[string]bool, len(s.Services))
	for k, v := range s.Services {
		services[k] = v
	}
	s.Services = services
	return s
}
