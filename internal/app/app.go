// Package app assembles services, handlers and the router around a store.
package app

import (
	"fmt"
	"time"

	"github.com/jwalitptl/opd-queue/internal/cache"
	"github.com/jwalitptl/opd-queue/internal/handler/appointment"
	"github.com/jwalitptl/opd-queue/internal/handler/doctor"
	"github.com/jwalitptl/opd-queue/internal/handler/health"
	notificationhandler "github.com/jwalitptl/opd-queue/internal/handler/notification"
	patienthandler "github.com/jwalitptl/opd-queue/internal/handler/patient"
	queuehandler "github.com/jwalitptl/opd-queue/internal/handler/queue"
	"github.com/jwalitptl/opd-queue/internal/middleware"
	"github.com/jwalitptl/opd-queue/internal/repository"
	"github.com/jwalitptl/opd-queue/internal/router"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/internal/service/access"
	"github.com/jwalitptl/opd-queue/internal/service/availability"
	"github.com/jwalitptl/opd-queue/internal/service/booking"
	doctorservice "github.com/jwalitptl/opd-queue/internal/service/doctor"
	"github.com/jwalitptl/opd-queue/internal/service/notification"
	"github.com/jwalitptl/opd-queue/internal/service/patient"
	"github.com/jwalitptl/opd-queue/internal/service/queue"
	"github.com/jwalitptl/opd-queue/pkg/logger"
	"github.com/jwalitptl/opd-queue/pkg/metrics"
	"github.com/jwalitptl/opd-queue/pkg/sms"
)

type Deps struct {
	Store          repository.Store
	StatusCache    cache.QueueStatusCache
	SMS            sms.Sender
	Calendar       service.Calendar
	ReminderWindow time.Duration
	Metrics        *metrics.Metrics
	Log            *logger.Logger
	Auth           *middleware.AuthMiddleware
	Router         router.RouterConfig
}

const defaultStatusTTL = 5 * time.Second

// New builds the HTTP router with every route registered. Missing optional
// dependencies fall back to the in-process implementations.
func New(d Deps) (*router.Router, error) {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.StatusCache == nil {
		d.StatusCache = cache.NewLocalCache(defaultStatusTTL)
	}
	if d.SMS == nil {
		d.SMS = sms.NewLogSender(d.Log.With("component", "sms"))
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	checker := availability.NewChecker(d.Store)
	owners := access.NewChecker(d.Store)
	emitter := notification.NewEmitter(d.Metrics, d.Log.With("component", "notifications"))

	bookingSvc := booking.NewService(d.Store, checker, emitter, d.SMS, d.Metrics, d.Log.With("component", "booking")).
		WithStatusCache(d.StatusCache)
	queueSvc := queue.NewService(d.Store, checker, emitter, d.StatusCache, d.Calendar, d.Metrics, d.Log.With("component", "queue"))
	doctorSvc := doctorservice.NewService(d.Store, d.Calendar, d.Log.With("component", "doctors"))
	patientSvc := patient.NewService(d.Store)
	notificationSvc := notification.NewService(d.Store, emitter, d.Calendar, d.ReminderWindow, d.Metrics, d.Log.With("component", "reminders"))

	r := router.NewRouter(d.Auth, router.Handlers{
		Health: health.NewHandler(
			health.Check{Name: "database", Pinger: d.Store},
			health.Check{Name: "status_cache", Pinger: d.StatusCache},
		),
		Doctor:       doctor.NewHandler(doctorSvc, queueSvc, owners, d.Calendar),
		Patient:      patienthandler.NewHandler(patientSvc),
		Appointment:  appointment.NewHandler(bookingSvc, checker, queueSvc, owners),
		Queue:        queuehandler.NewHandler(queueSvc, owners, d.Calendar),
		Notification: notificationhandler.NewHandler(notificationSvc),
	}, d.Router, d.Log)
	r.Setup()
	return r, nil
}
