package api

import (
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/julianpistorius/abaco/channels"
	"github.com/julianpistorius/abaco/models"
)

// GetMessages reports the approximate depth of the actor's inbox.
func (a *API) GetMessages(c echo.Context) error {
	_, actor, err := a.checkedActor(c, models.PermissionRead)
	if err != nil {
		return err
	}
	n, err := a.channels.ActorMsgChannel(actor.DBID).ApproxLen()
	if err != nil {
		return err
	}
	result := models.Record{"messages": n}
	return a.ok(c, withLinks(result, messagesLinks(actor)), "Messages retrieved successfully.")
}

// PostMessage is the intake hot path: extract the payload, create the
// execution record, then durably enqueue the message carrying the
// execution id, then assert one worker exists. The execution is created
// before the enqueue so the id is available for correlation; a worker that
// never dequeues leaves only an orphan execution for a later GC pass.
func (a *API) PostMessage(c echo.Context) error {
	id, actor, err := a.checkedActor(c, models.PermissionExecute)
	if err != nil {
		return err
	}
	payload, err := extractPayload(c)
	if err != nil {
		return err
	}

	d := map[string]string{}
	for k, v := range c.QueryParams() {
		if k == "message" || len(v) == 0 {
			continue
		}
		d[k] = v[0]
	}
	d[channels.MetaUsername] = id.User
	if id.APIServer != "" {
		d[channels.MetaAPIServer] = id.APIServer
	}
	if id.JWTHeaderName != "" {
		d[channels.MetaJWTHeaderName] = id.JWTHeaderName
	}

	ctx := c.Request().Context()
	exec := models.NewExecution(actor.DBID, id.User)
	if err := a.stores.Executions.Add(ctx, exec); err != nil {
		return err
	}
	d[channels.MetaExecutionID] = exec.ID
	d[channels.MetaContentType] = payload.ContentType()

	if err := a.channels.ActorMsgChannel(actor.DBID).PutMsg(payload, d); err != nil {
		// the execution exists but the message was never enqueued; the
		// caller must retry, which at-least-once delivery already assumes
		a.logger.WithError(err).WithField("actor", actor.DBID).
			Error("message publish failed after execution creation")
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"actor":     actor.DBID,
		"execution": exec.ID,
	}).Info("message added to actor inbox")

	if err := a.registry.EnsureOneWorker(ctx, actor); err != nil {
		return err
	}

	raw, err := payload.Raw()
	if err != nil {
		return err
	}
	result := models.Record{
		"execution_id": exec.ID,
		"msg":          raw,
	}
	return a.ok(c, withLinks(result, executionLinks(actor, exec.ID)), "The request was successful")
}

// extractPayload applies the message precedence: an explicit `message`
// field (form or JSON) wins, then a parseable JSON body, then the raw body
// as text. Anything else cannot be serialized and is rejected.
func extractPayload(c echo.Context) (channels.MessagePayload, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationForm) ||
		strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		if msg := c.FormValue("message"); msg != "" {
			return channels.TextPayload(msg), nil
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return channels.MessagePayload{}, DAOError("Could not read message POST body.")
	}
	if len(body) == 0 {
		return channels.MessagePayload{}, DAOError(
			"message POST body could not be serialized. Pass JSON data or use the message attribute.")
	}

	if json.Valid(body) {
		// an object with a string `message` field means only that field
		// is the payload; any other JSON is the payload itself
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(body, &probe); err == nil {
			if rawMsg, ok := probe["message"]; ok {
				var s string
				if err := json.Unmarshal(rawMsg, &s); err == nil {
					return channels.TextPayload(s), nil
				}
			}
		}
		return channels.JSONPayload(json.RawMessage(body)), nil
	}

	if utf8.Valid(body) {
		return channels.TextPayload(string(body)), nil
	}
	return channels.BytesPayload(body), nil
}
