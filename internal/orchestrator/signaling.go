package orchestrator

import (
	"errors"
	"strings"
)

// InviteRequest is an already-parsed inbound call-setup event. Caller and
// Callee are bare identifiers (the user part of the signaling URI); the
// callee identifier is the DID used for routing.
type InviteRequest struct {
	Caller      string
	Callee      string
	DisplayName string
}

// ResponseSink is the reply channel provided alongside an InviteRequest by
// the signaling transport.
type ResponseSink interface {
	Provisional(code int, reason string) error
	Final(code int, reason string) error
}

// HandleInvite routes an inbound call to a conference: acknowledge
// provisionally, look up or provision the conference by the callee DID,
// create a participant under the resolved display name and hand the invite
// to it for protocol completion. No matching conference yields a not-found
// final response.
func (o *Orchestrator) HandleInvite(req *InviteRequest, sink ResponseSink) error {
	if err := sink.Provisional(100, "Trying"); err != nil {
		o.log.Warn("provisional response failed", "callee", req.Callee, "error", err)
	}

	o.log.Debug("looking for conference", "did", req.Callee, "caller", req.Caller)
	conf, err := o.FetchConferenceByDID(req.Callee)
	if err != nil {
		if errors.Is(err, ErrConferenceNotFound) {
			o.log.Info("no such conference", "did", req.Callee)
			if serr := sink.Final(404, "Not Found"); serr != nil {
				o.log.Warn("final response failed", "callee", req.Callee, "error", serr)
			}
			return err
		}
		o.log.Error("conference provisioning for inbound call failed", "did", req.Callee, "error", err)
		if serr := sink.Final(500, "Server Internal Error"); serr != nil {
			o.log.Warn("final response failed", "callee", req.Callee, "error", serr)
		}
		return err
	}

	name := req.DisplayName
	if name == "" || strings.EqualFold(name, "anonymous") {
		name = req.Caller
	}

	o.log.Info("found conference for inbound call", "conference", conf.UID(), "did", req.Callee, "name", name)
	part, err := conf.CreateParticipant(ParticipantSIP, name, DefaultMosaic, DefaultSidebar)
	if err != nil {
		o.log.Error("create participant failed", "conference", conf.UID(), "error", err)
		if serr := sink.Final(500, "Server Internal Error"); serr != nil {
			o.log.Warn("final response failed", "callee", req.Callee, "error", serr)
		}
		return err
	}
	return part.HandleInvite(req, sink)
}
