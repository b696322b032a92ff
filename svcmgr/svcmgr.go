// Package svcmgr tracks per-service lifecycle state and drives the
// underlying init system.
//
// Currently supported service managers are systemd and sysv.
package svcmgr

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single service control command.
const DefaultTimeout = 10 * time.Second

// Action is a lifecycle action taken on a service.
type Action int

const (
	// Start brings a stopped service up.
	Start Action = iota
	// Stop brings a running service down.
	Stop
	// Restart stops and starts a service in one step.
	Restart
	// Reload asks a service to re-read its configuration and certificates.
	Reload
)

func (a Action) String() string {
	switch a {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Restart:
		return "restart"
	case Reload:
		return "reload"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps a configuration string to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "start":
		return Start, nil
	case "stop":
		return Stop, nil
	case "restart":
		return Restart, nil
	case "reload":
		return Reload, nil
	}
	return 0, fmt.Errorf("svcmgr: unsupported action '%s', must be one of start, stop, restart, reload", s)
}

// commandShape builds the argv for one action against one unit.  The two
// supported init systems differ only here; the transition logic is shared.
type commandShape func(unit string, action Action) (prog string, args []string)

// Service tracks what has already been done to a single OS service during
// this run, so overlapping routes don't trigger redundant restarts.  For
// example, restarting service A may stop and start its dependents B and C;
// if B and C also use the renewed certificate, restarting them again only
// adds downtime.
//
// A Service is not safe for concurrent use; the deployment pass is strictly
// sequential.
type Service struct {
	// Name is the unit name handed to the init system.
	Name string

	// Timeout bounds each control command issued for this service.
	Timeout time.Duration

	running   bool
	restarted bool
	reloaded  bool

	shape  commandShape
	runner Runner
	log    zerolog.Logger
}

func newService(name string, shape commandShape, runner Runner, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Service{
		Name:    name,
		Timeout: timeout,
		running: true,
		shape:   shape,
		runner:  runner,
		log:     log.With().Str("service", name).Logger(),
	}
}

// NewSysV returns a Service controlled through a classic init script,
// /etc/init.d/<name> <action>.
func NewSysV(name string, runner Runner, timeout time.Duration) *Service {
	return newService(name, func(unit string, action Action) (string, []string) {
		return "/etc/init.d/" + unit, []string{action.String()}
	}, runner, timeout)
}

// NewSystemd returns a Service controlled through systemctl.  The .service
// suffix is appended to the unit name if not already present.
func NewSystemd(name string, runner Runner, timeout time.Duration) *Service {
	unit := name
	if !strings.HasSuffix(unit, ".service") {
		unit += ".service"
	}
	return newService(unit, func(unit string, action Action) (string, []string) {
		return "systemctl", []string{action.String(), unit}
	}, runner, timeout)
}

func (s *Service) String() string {
	return s.Name
}

func (s *Service) execute(action Action) error {
	prog, args := s.shape(s.Name, action)
	s.log.Info().Stringer("action", action).Msgf("running '%s %s'", prog, strings.Join(args, " "))
	return s.runner.Run(s.Timeout, prog, args...)
}

// Start brings the service up if a previous job stopped it.  A stop
// followed by a start is tantamount to a restart, so a later restart
// request is suppressed.  Already-running services are left alone.
func (s *Service) Start() error {
	if s.running {
		return nil
	}
	if err := s.execute(Start); err != nil {
		return err
	}
	s.running = true
	s.restarted = true
	return nil
}

// Stop brings the service down if it is running.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}
	if err := s.execute(Stop); err != nil {
		return err
	}
	s.running = false
	return nil
}

// Restart restarts the service unless it was already restarted during this
// run and is still up.  A service left stopped is brought back up here even
// if it was restarted earlier.
func (s *Service) Restart() error {
	if s.restarted && s.running {
		return nil
	}
	if err := s.execute(Restart); err != nil {
		return err
	}
	s.running = true
	s.restarted = true
	return nil
}

// Reload asks the service to reload, at most once per run.  Reloading does
// not count as a restart.
func (s *Service) Reload() error {
	if s.reloaded {
		return nil
	}
	if err := s.execute(Reload); err != nil {
		return err
	}
	s.reloaded = true
	return nil
}

// Apply dispatches one Action to the matching method.
func (s *Service) Apply(action Action) error {
	switch action {
	case Start:
		return s.Start()
	case Stop:
		return s.Stop()
	case Restart:
		return s.Restart()
	case Reload:
		return s.Reload()
	}
	return fmt.Errorf("svcmgr: unknown action %d for service %s", int(action), s.Name)
}
