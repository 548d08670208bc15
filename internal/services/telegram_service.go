package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/example/orchid/internal/models"
)

// TelegramService pushes order and payment notifications to the staff
// chat. All sends are best effort and never block the caller's request.
type TelegramService struct {
	botToken    string
	adminChatID string
}

func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{botToken: botToken, adminChatID: adminChatID}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the staff chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// FormatAmount renders a minor-unit amount with thousand separators.
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "VND"
	}
	str := fmt.Sprintf("%d", amount)

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return result.String() + " " + currency
}

// NotifyNewOrder announces a freshly placed order to the staff chat.
func (s *TelegramService) NotifyNewOrder(order models.Order, customerName string) error {
	if s.adminChatID == "" {
		return nil
	}

	var items strings.Builder
	for i, item := range order.Items {
		items.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			item.ProductName,
			item.Quantity,
			FormatAmount(item.UnitPrice, order.Currency),
			FormatAmount(item.LineTotal, order.Currency),
		))
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>📞 Phone:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Payment:</b> %s
<b>📍 Status:</b> %s`,
		order.OrderNumber,
		customerName,
		order.Phone,
		items.String(),
		FormatAmount(order.TotalAmount, order.Currency),
		order.PaymentMethod,
		order.Status,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyPaymentReceived announces a successful gateway settlement.
func (s *TelegramService) NotifyPaymentReceived(orderNumber, gatewayName, transactionCode string, amount int64, currency string) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>✅ PAYMENT RECEIVED</b>
<b>📋 Order:</b> %s
<b>🏦 Gateway:</b> %s
<b>🔖 Txn:</b> %s
<b>💰 Amount:</b> %s`,
		orderNumber,
		gatewayName,
		transactionCode,
		FormatAmount(amount, currency),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
