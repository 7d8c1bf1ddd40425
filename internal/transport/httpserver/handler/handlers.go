package handler

import (
	calendardomain "quest-scheduler-go/internal/domain/calendar"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	searchdomain "quest-scheduler-go/internal/domain/search"
	sessiondomain "quest-scheduler-go/internal/domain/session"
	"quest-scheduler-go/pkg/logger"
)

type Handlers struct {
	Campaigns *campaigndomain.Service
	Sessions  *sessiondomain.Service
	Calendar  *calendardomain.Service
	Search    *searchdomain.Service
	log       logger.Logger
}

func New(campaigns *campaigndomain.Service, sessions *sessiondomain.Service, calendar *calendardomain.Service, search *searchdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Campaigns: campaigns,
		Sessions:  sessions,
		Calendar:  calendar,
		Search:    search,
		log:       log,
	}
}
