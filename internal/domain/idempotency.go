package domain

import "fmt"

// ProcessedValue записывается в маркер обработанного события; важен только факт наличия ключа.
const ProcessedValue = "1"

// ProcessedEventKey возвращает ключ маркера обработки события.
func ProcessedEventKey(eventID string) string {
	return fmt.Sprintf("event:%s:processed", eventID)
}

// RefundEventID отделяет события возвратов от платёжных в общем журнале обработки.
func RefundEventID(eventID string) string {
	return "refund:" + eventID
}

// HoldReleaseEventID строит идентификатор компенсации резерва баллов по черновику.
func HoldReleaseEventID(draftID string) string {
	return "hold-release:" + draftID
}
