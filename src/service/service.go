// Package service exposes the state of a party over HTTP.
package service

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/mosaicnetworks/party/src/party"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Service serves read-only views of a PartyState and of the greeting sessions
// of a Greeter, along with the metrics of the process.
type Service struct {
	sync.Mutex

	bindAddress string
	party       *party.PartyState
	greeter     *greet.Greeter
	gatherer    prometheus.Gatherer
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService creates a Service. greeter and gatherer may be nil, in which case
// /invitations and /metrics are not served.
func NewService(bindAddress string, ps *party.PartyState, greeter *greet.Greeter, gatherer prometheus.Gatherer, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		party:       ps,
		greeter:     greeter,
		gatherer:    gatherer,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering Party API handlers")
	s.mux.HandleFunc("/members", s.makeHandler(s.GetMembers))
	s.mux.HandleFunc("/feeds", s.makeHandler(s.GetFeeds))
	s.mux.HandleFunc("/party-invitations", s.makeHandler(s.GetPartyInvitations))
	if s.greeter != nil {
		s.mux.HandleFunc("/invitations", s.makeHandler(s.GetInvitations))
	}
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler of all the routes of the Service.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving Party API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Member is the view of an admitted key.
type Member struct {
	PublicKey   keys.PublicKey `json:"publicKey"`
	Type        string         `json:"type,omitempty"`
	DisplayName string         `json:"displayName,omitempty"`
	AdmittedBy  keys.PublicKey `json:"admittedBy,omitempty"`
}

// GetMembers lists the keys admitted to the party.
func (s *Service) GetMembers(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, Members(s.party))
}

// Members returns the view of the keys admitted to ps.
func Members(ps *party.PartyState) []Member {
	identities := ps.IdentityProcessor()
	var members []Member
	for _, k := range ps.MemberKeys() {
		m := Member{
			PublicKey:   k,
			DisplayName: identities.GetDisplayName(k),
			AdmittedBy:  ps.GetAdmittedBy(k),
		}
		if rec := ps.Keyring().GetKey(k); rec != nil {
			m.Type = rec.Type.String()
		}
		members = append(members, m)
	}
	return members
}

// GetFeeds lists the feeds admitted to the party.
func (s *Service) GetFeeds(w http.ResponseWriter, r *http.Request) {
	var feeds []Member
	for _, k := range s.party.MemberFeeds() {
		feeds = append(feeds, Member{
			PublicKey:  k,
			Type:       message.KeyTypeFeed.String(),
			AdmittedBy: s.party.GetAdmittedBy(k),
		})
	}
	returnJSON(w, feeds)
}

// GetPartyInvitations lists the PartyInvitations that have not been redeemed.
func (s *Service) GetPartyInvitations(w http.ResponseWriter, r *http.Request) {
	returnJSON(w, s.party.InvitationManager().Invitations())
}

// Invitation is the view of a greeting session. It leaves out the secrets.
type Invitation struct {
	ID         common.HexBytes `json:"id"`
	State      string          `json:"state"`
	Issued     time.Time       `json:"issued"`
	Expiration *time.Time      `json:"expiration,omitempty"`
}

// GetInvitations lists the greeting sessions of the greeter.
func (s *Service) GetInvitations(w http.ResponseWriter, r *http.Request) {
	var res []Invitation
	for _, inv := range s.greeter.Invitations() {
		v := Invitation{
			ID:     inv.ID,
			State:  inv.State(),
			Issued: inv.Issued,
		}
		if !inv.Expiration.IsZero() {
			exp := inv.Expiration
			v.Expiration = &exp
		}
		res = append(res, v)
	}
	returnJSON(w, res)
}

func returnJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)

	encoder.Encode(v)
}
