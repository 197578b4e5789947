package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/database"
	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/scheduler"
)

// SchedulerProbe exposes the refresh scheduler's state.
type SchedulerProbe interface {
	State() scheduler.State
}

// ChannelProbe exposes live broadcast channel usage.
type ChannelProbe interface {
	ConnectionCount() int
	GroupCount() int
}

// SystemStatus is a point-in-time view of the process for health reporting.
type SystemStatus struct {
	Database    error
	Scheduler   string
	Connections int
	Groups      int
}

// SystemService reports on the database and the long-running components.
type SystemService struct {
	db        *sql.DB
	scheduler SchedulerProbe
	channel   ChannelProbe
}

// NewSystemService creates a new SystemService.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// WithProbes attaches the scheduler and channel to the status report.
// Either may be nil.
func (s *SystemService) WithProbes(sched SchedulerProbe, channel ChannelProbe) *SystemService {
	s.scheduler = sched
	s.channel = channel
	return s
}

// CheckHealth pings the database.
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

// Status collects the database health plus whatever probes are attached.
// Only the database decides whether the service is healthy.
func (s *SystemService) Status(ctx context.Context) SystemStatus {
	status := SystemStatus{Database: s.CheckHealth(ctx)}
	if s.scheduler != nil {
		status.Scheduler = s.scheduler.State().String()
	}
	if s.channel != nil {
		status.Connections = s.channel.ConnectionCount()
		status.Groups = s.channel.GroupCount()
	}
	return status
}
