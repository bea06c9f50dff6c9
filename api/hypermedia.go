package api

import (
	"fmt"

	"github.com/julianpistorius/abaco/models"
)

// Hypermedia links are decorative absolute URLs minted from the actor's
// api_server; they are never authoritative. All composition here is pure.

func actorURL(apiServer, actorID string) string {
	return fmt.Sprintf("%s/actors/v2/%s", apiServer, actorID)
}

func ownerURL(apiServer, owner string) string {
	return fmt.Sprintf("%s/profiles/v2/%s", apiServer, owner)
}

func actorLinks(a models.Actor) models.Record {
	return models.Record{
		"self":       actorURL(a.APIServer, a.ID),
		"owner":      ownerURL(a.APIServer, a.Owner),
		"executions": actorURL(a.APIServer, a.ID) + "/executions",
	}
}

func executionLinks(a models.Actor, execID string) models.Record {
	return models.Record{
		"self":     fmt.Sprintf("%s/executions/%s", actorURL(a.APIServer, a.ID), execID),
		"owner":    ownerURL(a.APIServer, a.Owner),
		"messages": actorURL(a.APIServer, a.ID) + "/messages",
	}
}

func logsLinks(a models.Actor, execID string) models.Record {
	return models.Record{
		"self":      fmt.Sprintf("%s/executions/%s/logs", actorURL(a.APIServer, a.ID), execID),
		"owner":     ownerURL(a.APIServer, a.Owner),
		"execution": fmt.Sprintf("%s/executions/%s", actorURL(a.APIServer, a.ID), execID),
	}
}

func messagesLinks(a models.Actor) models.Record {
	return models.Record{
		"self":  actorURL(a.APIServer, a.ID) + "/messages",
		"owner": ownerURL(a.APIServer, a.Owner),
	}
}

func withLinks(rec models.Record, links models.Record) models.Record {
	rec["_links"] = links
	return rec
}
