package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCheckoutExpiry = "purchases.checkout_expiry"

type CheckoutExpiryPayload struct {
	PurchaseID string `json:"purchaseId"`
}

func NewCheckoutExpiryTask(payload CheckoutExpiryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckoutExpiry, data), nil
}

func ParseCheckoutExpiryPayload(task *asynq.Task) (CheckoutExpiryPayload, error) {
	var payload CheckoutExpiryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CheckoutExpiryPayload{}, err
	}
	return payload, nil
}
