package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
)

// item is the stored shape of a receipt. Index keys are omitted when empty:
// DynamoDB rejects empty strings in key attributes.
type item struct {
	UserID          string     `dynamodbav:"user_id"`
	ReceiptID       string     `dynamodbav:"receipt_id"`
	VendorName      string     `dynamodbav:"vendor_name,omitempty"`
	TransactionDate string     `dynamodbav:"transaction_date,omitempty"`
	TotalAmount     *amount    `dynamodbav:"total_amount,omitempty"`
	Items           []lineItem `dynamodbav:"items,omitempty"`
	ItemsText       string     `dynamodbav:"items_text,omitempty"`
	RawText         string     `dynamodbav:"raw_text,omitempty"`
	ImageReference  string     `dynamodbav:"image_reference,omitempty"`
}

type lineItem struct {
	Name     string  `dynamodbav:"item_name"`
	Quantity float64 `dynamodbav:"quantity"`
	Price    *amount `dynamodbav:"price,omitempty"`
}

// amount stores money as a DynamoDB number without a float round trip.
type amount struct {
	decimal.Decimal
}

func (a amount) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: a.String()}, nil
}

func (a *amount) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	default:
		return fmt.Errorf("unsupported amount attribute %T", av)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", raw, err)
	}
	a.Decimal = d
	return nil
}

func toAmount(d *decimal.Decimal) *amount {
	if d == nil {
		return nil
	}
	return &amount{Decimal: *d}
}

func (a *amount) value() *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal
	return &d
}

func toItem(r receipt.Record) item {
	it := item{
		UserID:          r.UserID(),
		ReceiptID:       r.ReceiptID(),
		VendorName:      r.VendorName(),
		TransactionDate: r.TransactionDate(),
		TotalAmount:     toAmount(r.TotalAmount()),
		ItemsText:       r.ItemsText(),
		RawText:         r.RawText(),
		ImageReference:  r.ImageReference(),
	}
	for _, li := range r.Items() {
		it.Items = append(it.Items, lineItem{Name: li.Name, Quantity: li.Quantity, Price: toAmount(li.Price)})
	}
	return it
}

func (it item) toDomain() receipt.Record {
	f := receipt.Fields{
		VendorName:      it.VendorName,
		TransactionDate: it.TransactionDate,
		TotalAmount:     it.TotalAmount.value(),
		RawText:         it.RawText,
		ImageReference:  it.ImageReference,
	}
	for _, li := range it.Items {
		f.Items = append(f.Items, receipt.Item{Name: li.Name, Quantity: li.Quantity, Price: li.Price.value()})
	}
	return receipt.Reconstruct(it.UserID, it.ReceiptID, f)
}
