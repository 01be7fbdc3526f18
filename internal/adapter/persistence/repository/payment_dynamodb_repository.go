package repository

import (
	"context"
	"errors"

	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultPaymentsTableName    = "payments"
	paymentsOrderIndex          = "order_id-index"
	paymentsGatewayOrderIndex   = "gateway_order_id-index"
	paymentsGatewayPaymentIndex = "gateway_payment_id-index"
)

type paymentStatusChangeItem struct {
	Status    string `dynamodbav:"status"`
	ChangedAt string `dynamodbav:"changed_at"`
	ChangedBy string `dynamodbav:"changed_by"`
	Reason    string `dynamodbav:"reason,omitempty"`
}

type paymentItem struct {
	ID      string `dynamodbav:"id"`
	OrderID string `dynamodbav:"order_id"`

	GatewayOrderID   string `dynamodbav:"gateway_order_id"`
	GatewayPaymentID string `dynamodbav:"gateway_payment_id,omitempty"`

	Amount   string `dynamodbav:"amount"`
	Currency string `dynamodbav:"currency"`

	Status   string `dynamodbav:"status"`
	Verified bool   `dynamodbav:"verified"`
	Source   string `dynamodbav:"source"`
	Method   string `dynamodbav:"method,omitempty"`

	StatusHistory []paymentStatusChangeItem `dynamodbav:"status_history"`

	CreatedAt  string `dynamodbav:"created_at"`
	UpdatedAt  string `dynamodbav:"updated_at"`
	VerifiedAt string `dynamodbav:"verified_at,omitempty"`
	FailedAt   string `dynamodbav:"failed_at,omitempty"`
}

// PaymentDynamoRepository persists Payment entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: order_id-index (PK: order_id, SK: created_at)
//   - GSI: gateway_order_id-index (PK: gateway_order_id)
//   - GSI: gateway_payment_id-index (PK: gateway_payment_id)
//
// Webhook-created records use the gateway payment id as the record id, so two
// concurrent deliveries of the same capture collide on Create and exactly one
// wins.

type PaymentDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.IPaymentRepository = (*PaymentDynamoRepository)(nil)

func NewPaymentDynamoRepository(ddb *dynamodb.Client) *PaymentDynamoRepository {
	return &PaymentDynamoRepository{
		ddb:       ddb,
		tableName: getenvDefault("PAYMENTS_TABLE", defaultPaymentsTableName),
	}
}

func (r *PaymentDynamoRepository) Create(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	av, err := attributevalue.MarshalMap(toPaymentItem(p))
	if err != nil {
		return entities.Payment{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Payment{}, interfaces.ErrPaymentExists
		}
		return entities.Payment{}, err
	}
	return p, nil
}

func (r *PaymentDynamoRepository) GetByID(ctx context.Context, id string) (entities.Payment, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Payment{}, err
	}
	if len(out.Item) == 0 {
		return entities.Payment{}, nil
	}

	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it), nil
}

func (r *PaymentDynamoRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (entities.Payment, error) {
	return r.getByIndex(ctx, paymentsGatewayOrderIndex, "gateway_order_id", gatewayOrderID)
}

func (r *PaymentDynamoRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (entities.Payment, error) {
	return r.getByIndex(ctx, paymentsGatewayPaymentIndex, "gateway_payment_id", gatewayPaymentID)
}

func (r *PaymentDynamoRepository) getByIndex(ctx context.Context, index, attr, value string) (entities.Payment, error) {
	if value == "" {
		return entities.Payment{}, nil
	}

	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#attr = :value"),
		ExpressionAttributeNames: map[string]string{
			"#attr": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":value": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return entities.Payment{}, err
	}
	if len(out.Items) == 0 {
		return entities.Payment{}, nil
	}

	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it), nil
}

func (r *PaymentDynamoRepository) ListByOrderID(ctx context.Context, orderID string) ([]entities.Payment, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(paymentsOrderIndex),
		KeyConditionExpression: aws.String("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: orderID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	items := make([]entities.Payment, 0, len(out.Items))
	for _, raw := range out.Items {
		var it paymentItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		items = append(items, fromPaymentItem(it))
	}
	return items, nil
}

// SaveVerified replaces the record, conditioned on it not being verified yet.
// The condition is the idempotency gate: of N concurrent confirmations for
// the same attempt exactly one write lands, the rest see
// ErrPaymentAlreadyVerified.
func (r *PaymentDynamoRepository) SaveVerified(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	av, err := attributevalue.MarshalMap(toPaymentItem(p))
	if err != nil {
		return entities.Payment{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(#id) AND #verified = :false"),
		ExpressionAttributeNames: map[string]string{
			"#id":       "id",
			"#verified": "verified",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Payment{}, interfaces.ErrPaymentAlreadyVerified
		}
		return entities.Payment{}, err
	}
	return p, nil
}

func (r *PaymentDynamoRepository) Save(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	av, err := attributevalue.MarshalMap(toPaymentItem(p))
	if err != nil {
		return entities.Payment{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return entities.Payment{}, err
	}
	return p, nil
}

func toPaymentItem(p entities.Payment) paymentItem {
	history := make([]paymentStatusChangeItem, 0, len(p.StatusHistory))
	for _, h := range p.StatusHistory {
		history = append(history, paymentStatusChangeItem{
			Status:    string(h.Status),
			ChangedAt: formatTime(h.ChangedAt),
			ChangedBy: h.ChangedBy,
			Reason:    h.Reason,
		})
	}
	return paymentItem{
		ID:               p.ID,
		OrderID:          p.OrderID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           floatToString(p.Amount),
		Currency:         p.Currency,
		Status:           string(p.Status),
		Verified:         p.Verified,
		Source:           string(p.Source),
		Method:           p.Method,
		StatusHistory:    history,
		CreatedAt:        formatTime(p.CreatedAt),
		UpdatedAt:        formatTime(p.UpdatedAt),
		VerifiedAt:       formatTimePtr(p.VerifiedAt),
		FailedAt:         formatTimePtr(p.FailedAt),
	}
}

func fromPaymentItem(it paymentItem) entities.Payment {
	history := make([]entities.PaymentStatusChange, 0, len(it.StatusHistory))
	for _, h := range it.StatusHistory {
		history = append(history, entities.PaymentStatusChange{
			Status:    entities.PaymentStatus(h.Status),
			ChangedAt: parseTime(h.ChangedAt),
			ChangedBy: h.ChangedBy,
			Reason:    h.Reason,
		})
	}
	return entities.Payment{
		ID:               it.ID,
		OrderID:          it.OrderID,
		GatewayOrderID:   it.GatewayOrderID,
		GatewayPaymentID: it.GatewayPaymentID,
		Amount:           stringToFloat(it.Amount),
		Currency:         it.Currency,
		Status:           entities.PaymentStatus(it.Status),
		Verified:         it.Verified,
		Source:           entities.PaymentSource(it.Source),
		Method:           it.Method,
		StatusHistory:    history,
		CreatedAt:        parseTime(it.CreatedAt),
		UpdatedAt:        parseTime(it.UpdatedAt),
		VerifiedAt:       parseTimePtr(it.VerifiedAt),
		FailedAt:         parseTimePtr(it.FailedAt),
	}
}
