package main

import (
	"encoding/json"
	"fmt"
	"log"

	"campus-maintenance-system/pkg/events"

	amqp "github.com/rabbitmq/amqp091-go"
)

// dispatch routes one bus event to the connections of the user it is for.
func dispatch(h *Hub, routingKey string, body []byte) error {
	switch routingKey {
	case events.NotificationCreated:
		var ev events.NotificationEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("parse notification: %w", err)
		}
		sent := h.SendToUser(ev.UserID, Push{Type: "notification", Data: ev})
		log.Printf("[OK] Notification %s (%s) pushed to %d connection(s) of %s", ev.ID, ev.Type, sent, ev.UserID)

	case events.MessageSent:
		var ev events.MessageEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("parse message: %w", err)
		}
		sent := h.SendToUser(ev.ReceiverID, Push{Type: "message", Data: ev})
		log.Printf("[OK] Message %s pushed to %d connection(s) of %s", ev.ID, sent, ev.ReceiverID)

	default:
		return fmt.Errorf("unexpected routing key %q", routingKey)
	}
	return nil
}

func consume(h *Hub, msgs <-chan amqp.Delivery) {
	for d := range msgs {
		if err := dispatch(h, d.RoutingKey, d.Body); err != nil {
			log.Printf("[WARN] Dropping event: %v", err)
		}
	}
	log.Println("[WARN] Event stream closed")
}
