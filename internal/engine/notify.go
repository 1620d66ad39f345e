package engine

import (
	"context"
	"errors"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// dispatch inserts one durable notification record. It must only be
// called inside the transaction of the mutation that triggers it: the
// notification commits with its cause or not at all.
func (e *Engine) dispatch(tx *store.Tx, userID string, typ model.NotificationType, relatedID string) error {
	return tx.InsertNotification(model.Notification{
		ID:        e.ids.NewID(),
		UserID:    userID,
		Type:      typ,
		RelatedID: relatedID,
		IsRead:    false,
		CreatedAt: e.clock.Now(),
	})
}

// ListNotifications returns a user's notifications. A principal may only
// list their own unless they are an admin.
func (e *Engine) ListNotifications(ctx context.Context, p *model.Principal, userID string) ([]model.Notification, error) {
	const op = "ListNotifications"

	if p == nil {
		return nil, errf(KindUnauthenticated, op, "no principal")
	}
	if p.ID != userID && !p.IsAdmin {
		return nil, errf(KindForbidden, op, "user %s may not read notifications of user %s", p.ID, userID)
	}

	notifications, err := e.store.ListNotifications(ctx, userID)
	if err != nil {
		e.log.Error("notification list failed", "op", op, "user_id", userID, "error", err)
		return nil, internalf(op, err, "list notifications for user %s", userID)
	}
	return notifications, nil
}

// MarkNotificationRead flips the read flag on a notification. Only the
// recipient may do this; it is the single permitted notification
// mutation.
func (e *Engine) MarkNotificationRead(ctx context.Context, p *model.Principal, notificationID string) error {
	const op = "MarkNotificationRead"

	if p == nil {
		return errf(KindUnauthenticated, op, "no principal")
	}

	notification, err := e.store.GetNotification(ctx, notificationID)
	if errors.Is(err, store.ErrNotFound) {
		return errf(KindNotFound, op, "notification %s not found", notificationID)
	}
	if err != nil {
		e.log.Error("notification load failed", "op", op, "notification_id", notificationID, "error", err)
		return internalf(op, err, "load notification %s", notificationID)
	}

	if notification.UserID != p.ID {
		return errf(KindForbidden, op, "user %s is not the recipient of notification %s", p.ID, notificationID)
	}

	if err := e.store.MarkNotificationRead(ctx, notificationID); err != nil {
		e.log.Error("notification update failed", "op", op, "notification_id", notificationID, "error", err)
		return internalf(op, err, "mark notification %s read", notificationID)
	}
	return nil
}
