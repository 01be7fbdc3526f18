package repository

import (
	"context"
	"errors"
	"time"

	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultOrdersTableName      = "orders"
	defaultPickupCodesTableName = "pickup_codes"
	ordersUserIndex             = "uid-index"
)

type orderLineItem struct {
	ItemID    string `dynamodbav:"item_id"`
	Name      string `dynamodbav:"name"`
	Quantity  int    `dynamodbav:"quantity"`
	UnitPrice string `dynamodbav:"unit_price"`
	UnitGST   string `dynamodbav:"unit_gst"`
}

type statusChangeItem struct {
	Status    string            `dynamodbav:"status"`
	ChangedAt string            `dynamodbav:"changed_at"`
	ChangedBy string            `dynamodbav:"changed_by"`
	Reason    string            `dynamodbav:"reason,omitempty"`
	Metadata  map[string]string `dynamodbav:"metadata,omitempty"`
}

type orderItem struct {
	ID        string `dynamodbav:"id"`
	UserID    string `dynamodbav:"uid"`
	MachineID string `dynamodbav:"machine_id"`

	Price string `dynamodbav:"price"`
	GST   string `dynamodbav:"gst"`
	Total string `dynamodbav:"total"`

	Lines  []orderLineItem `dynamodbav:"lines"`
	Status string          `dynamodbav:"status"`

	PickupCode string `dynamodbav:"pickup_code,omitempty"`
	Completed  bool   `dynamodbav:"completed"`

	StatusHistory []statusChangeItem `dynamodbav:"status_history"`
	Version       int64              `dynamodbav:"version"`

	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
	PaidAt      string `dynamodbav:"paid_at,omitempty"`
	PreparingAt string `dynamodbav:"preparing_at,omitempty"`
	CompletedAt string `dynamodbav:"completed_at,omitempty"`
}

type pickupCodeItem struct {
	MachineID string `dynamodbav:"machine_id"`
	Code      string `dynamodbav:"code"`
	OrderID   string `dynamodbav:"order_id"`
	CreatedAt string `dynamodbav:"created_at"`
}

// OrderDynamoRepository persists Order aggregates in DynamoDB.
//
// Table requirements:
//   - orders: PK id (string), GSI uid-index (PK: uid, SK: created_at)
//   - pickup_codes: PK machine_id (string), SK code (string)
//
// Every transition write replaces the whole document and is conditioned on
// the stored version matching the version the caller read. The pickup_codes
// table holds one row per active code per machine; claiming and releasing a
// code ride in the same TransactWriteItems as the order write, so a code can
// be active for at most one order per machine and is consumed exactly once.

type OrderDynamoRepository struct {
	ddb        *dynamodb.Client
	tableName  string
	codesTable string
}

var _ interfaces.IOrderRepository = (*OrderDynamoRepository)(nil)

func NewOrderDynamoRepository(ddb *dynamodb.Client) *OrderDynamoRepository {
	return &OrderDynamoRepository{
		ddb:        ddb,
		tableName:  getenvDefault("ORDERS_TABLE", defaultOrdersTableName),
		codesTable: getenvDefault("PICKUP_CODES_TABLE", defaultPickupCodesTableName),
	}
}

func (r *OrderDynamoRepository) Create(ctx context.Context, o entities.Order) (entities.Order, error) {
	av, err := attributevalue.MarshalMap(toOrderItem(o))
	if err != nil {
		return entities.Order{}, err
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
		return entities.Order{}, err
	}
	return o, nil
}

func (r *OrderDynamoRepository) GetByID(ctx context.Context, id string) (entities.Order, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Order{}, err
	}
	if len(out.Item) == 0 {
		return entities.Order{}, nil
	}

	var it orderItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Order{}, err
	}
	return fromOrderItem(it), nil
}

func (r *OrderDynamoRepository) GetLatestByUserID(ctx context.Context, userID string) (entities.Order, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(ordersUserIndex),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": "uid",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return entities.Order{}, err
	}
	if len(out.Items) == 0 {
		return entities.Order{}, nil
	}

	var it orderItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return entities.Order{}, err
	}
	return fromOrderItem(it), nil
}

// GetBlockingByUserID returns the user's most recent order that is still in a
// blocking state (PENDING, READY_FOR_PICKUP or PREPARING), or a zero Order.
func (r *OrderDynamoRepository) GetBlockingByUserID(ctx context.Context, userID string) (entities.Order, error) {
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(ordersUserIndex),
			KeyConditionExpression: aws.String("#uid = :uid"),
			FilterExpression:       aws.String("#status IN (:pending, :ready, :preparing)"),
			ExpressionAttributeNames: map[string]string{
				"#uid":    "uid",
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid":       &types.AttributeValueMemberS{Value: userID},
				":pending":   &types.AttributeValueMemberS{Value: string(entities.OrderStatusPending)},
				":ready":     &types.AttributeValueMemberS{Value: string(entities.OrderStatusReadyForPickup)},
				":preparing": &types.AttributeValueMemberS{Value: string(entities.OrderStatusPreparing)},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return entities.Order{}, err
		}
		if len(out.Items) > 0 {
			var it orderItem
			if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
				return entities.Order{}, err
			}
			return fromOrderItem(it), nil
		}
		if out.LastEvaluatedKey == nil {
			return entities.Order{}, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func (r *OrderDynamoRepository) SaveTransition(ctx context.Context, o entities.Order, expectedVersion int64) (entities.Order, error) {
	o.Version = expectedVersion + 1
	av, err := attributevalue.MarshalMap(toOrderItem(o))
	if err != nil {
		return entities.Order{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(#id) AND #version = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#id":      "id",
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: int64ToString(expectedVersion)},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Order{}, interfaces.ErrVersionConflict
		}
		return entities.Order{}, err
	}
	return o, nil
}

// SaveTransitionClaimingCode writes the order and claims o.PickupCode for
// o.MachineID in one transaction. The claim fails if that code is already
// active on the machine.
func (r *OrderDynamoRepository) SaveTransitionClaimingCode(ctx context.Context, o entities.Order, expectedVersion int64) (entities.Order, error) {
	o.Version = expectedVersion + 1
	orderAV, err := attributevalue.MarshalMap(toOrderItem(o))
	if err != nil {
		return entities.Order{}, err
	}
	codeAV, err := attributevalue.MarshalMap(pickupCodeItem{
		MachineID: o.MachineID,
		Code:      o.PickupCode,
		OrderID:   o.ID,
		CreatedAt: formatTime(time.Now()),
	})
	if err != nil {
		return entities.Order{}, err
	}

	_, err = r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                orderAV,
					ConditionExpression: aws.String("attribute_exists(#id) AND #version = :expected"),
					ExpressionAttributeNames: map[string]string{
						"#id":      "id",
						"#version": "version",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":expected": &types.AttributeValueMemberN{Value: int64ToString(expectedVersion)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(r.codesTable),
					Item:                codeAV,
					ConditionExpression: aws.String("attribute_not_exists(#machine_id)"),
					ExpressionAttributeNames: map[string]string{
						"#machine_id": "machine_id",
					},
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return entities.Order{}, classifyClaimCancellation(tce)
		}
		return entities.Order{}, err
	}
	return o, nil
}

// SaveTransitionReleasingCode writes the order and deletes the consumed code
// row in one transaction.
func (r *OrderDynamoRepository) SaveTransitionReleasingCode(ctx context.Context, o entities.Order, expectedVersion int64, code string) (entities.Order, error) {
	if code == "" {
		return r.SaveTransition(ctx, o, expectedVersion)
	}

	o.Version = expectedVersion + 1
	orderAV, err := attributevalue.MarshalMap(toOrderItem(o))
	if err != nil {
		return entities.Order{}, err
	}

	_, err = r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                orderAV,
					ConditionExpression: aws.String("attribute_exists(#id) AND #version = :expected"),
					ExpressionAttributeNames: map[string]string{
						"#id":      "id",
						"#version": "version",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":expected": &types.AttributeValueMemberN{Value: int64ToString(expectedVersion)},
					},
				},
			},
			{
				Delete: &types.Delete{
					TableName: aws.String(r.codesTable),
					Key: map[string]types.AttributeValue{
						"machine_id": &types.AttributeValueMemberS{Value: o.MachineID},
						"code":       &types.AttributeValueMemberS{Value: code},
					},
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return entities.Order{}, classifyReleaseCancellation(tce)
		}
		return entities.Order{}, err
	}
	return o, nil
}

func (r *OrderDynamoRepository) ResolvePickupCode(ctx context.Context, machineID, code string) (string, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.codesTable),
		Key: map[string]types.AttributeValue{
			"machine_id": &types.AttributeValueMemberS{Value: machineID},
			"code":       &types.AttributeValueMemberS{Value: code},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if len(out.Item) == 0 {
		return "", nil
	}

	var it pickupCodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", err
	}
	return it.OrderID, nil
}

// ListStalePending scans for PENDING orders created before the cutoff. The
// table stays small (orders drain to terminal states) so a filtered scan is
// acceptable here.
func (r *OrderDynamoRepository) ListStalePending(ctx context.Context, olderThan time.Time) ([]entities.Order, error) {
	cutoff := formatTime(olderThan)

	var stale []entities.Order
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("#status = :pending AND #created_at < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#status":     "status",
				"#created_at": "created_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pending": &types.AttributeValueMemberS{Value: string(entities.OrderStatusPending)},
				":cutoff":  &types.AttributeValueMemberS{Value: cutoff},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			var it orderItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, err
			}
			stale = append(stale, fromOrderItem(it))
		}
		if out.LastEvaluatedKey == nil {
			return stale, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

// classifyClaimCancellation maps the transaction cancellation reasons back to
// the sentinel the caller acts on: index 0 is the order write, index 1 the
// code claim.
func classifyClaimCancellation(tce *types.TransactionCanceledException) error {
	for i, reason := range tce.CancellationReasons {
		if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
			continue
		}
		if i == 1 {
			return interfaces.ErrPickupCodeTaken
		}
		return interfaces.ErrVersionConflict
	}
	return tce
}

// classifyReleaseCancellation maps a cancelled release transaction. Only the
// order write is conditioned there (the code delete is unconditional), so a
// ConditionalCheckFailed means a lost version race. Throttling and
// transaction-conflict cancellations pass through as plain errors so callers
// do not mistake a store hiccup for a lost race.
func classifyReleaseCancellation(tce *types.TransactionCanceledException) error {
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return interfaces.ErrVersionConflict
		}
	}
	return tce
}

func toOrderItem(o entities.Order) orderItem {
	lines := make([]orderLineItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineItem{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: floatToString(l.UnitPrice),
			UnitGST:   floatToString(l.UnitGST),
		})
	}
	history := make([]statusChangeItem, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, statusChangeItem{
			Status:    string(h.Status),
			ChangedAt: formatTime(h.ChangedAt),
			ChangedBy: h.ChangedBy,
			Reason:    h.Reason,
			Metadata:  h.Metadata,
		})
	}
	return orderItem{
		ID:            o.ID,
		UserID:        o.UserID,
		MachineID:     o.MachineID,
		Price:         floatToString(o.Amount.Price),
		GST:           floatToString(o.Amount.GST),
		Total:         floatToString(o.Amount.Total),
		Lines:         lines,
		Status:        string(o.Status),
		PickupCode:    o.PickupCode,
		Completed:     o.Completed,
		StatusHistory: history,
		Version:       o.Version,
		CreatedAt:     formatTime(o.CreatedAt),
		UpdatedAt:     formatTime(o.UpdatedAt),
		PaidAt:        formatTimePtr(o.PaidAt),
		PreparingAt:   formatTimePtr(o.PreparingAt),
		CompletedAt:   formatTimePtr(o.CompletedAt),
	}
}

func fromOrderItem(it orderItem) entities.Order {
	lines := make([]entities.OrderLine, 0, len(it.Lines))
	for _, l := range it.Lines {
		lines = append(lines, entities.OrderLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: stringToFloat(l.UnitPrice),
			UnitGST:   stringToFloat(l.UnitGST),
		})
	}
	history := make([]entities.StatusChange, 0, len(it.StatusHistory))
	for _, h := range it.StatusHistory {
		history = append(history, entities.StatusChange{
			Status:    entities.OrderStatus(h.Status),
			ChangedAt: parseTime(h.ChangedAt),
			ChangedBy: h.ChangedBy,
			Reason:    h.Reason,
			Metadata:  h.Metadata,
		})
	}
	return entities.Order{
		ID:        it.ID,
		UserID:    it.UserID,
		MachineID: it.MachineID,
		Amount: entities.Amount{
			Price: stringToFloat(it.Price),
			GST:   stringToFloat(it.GST),
			Total: stringToFloat(it.Total),
		},
		Lines:         lines,
		Status:        entities.OrderStatus(it.Status),
		PickupCode:    it.PickupCode,
		Completed:     it.Completed,
		StatusHistory: history,
		Version:       it.Version,
		CreatedAt:     parseTime(it.CreatedAt),
		UpdatedAt:     parseTime(it.UpdatedAt),
		PaidAt:        parseTimePtr(it.PaidAt),
		PreparingAt:   parseTimePtr(it.PreparingAt),
		CompletedAt:   parseTimePtr(it.CompletedAt),
	}
}
