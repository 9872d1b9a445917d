// Package paymentprovider инкапсулирует работу со Stripe.
// Сервису нужен единственный сценарий: перевести подписку аккаунта
// на другой ценовой тариф при смене набора приложений.
package paymentprovider

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	stripeSubscription "github.com/stripe/stripe-go/v82/subscription"
)

// Client клиент Stripe.
type Client struct{}

// NewClient создаёт клиент Stripe с заданным секретным ключом.
func NewClient(secretKey string) *Client {
	stripe.Key = secretKey
	return &Client{}
}

// UpdateSubscriptionPrice переводит подписку на цену priceID,
// заменяя её единственную позицию. Пропорциональный перерасчёт
// оставлен поведению Stripe по умолчанию.
func (c *Client) UpdateSubscriptionPrice(subscriptionID, priceID string) error {
	const op = "paymentprovider.UpdateSubscriptionPrice"

	sub, err := stripeSubscription.Get(subscriptionID, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("%s: subscription %s has no items", op, subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
	}
	if _, err := stripeSubscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
