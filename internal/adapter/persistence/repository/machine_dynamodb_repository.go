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

const defaultMachinesTableName = "machines"

type machineItem struct {
	ID             string `dynamodbav:"id"`
	Code           string `dynamodbav:"code"`
	Name           string `dynamodbav:"name"`
	Location       string `dynamodbav:"location,omitempty"`
	IsActive       bool   `dynamodbav:"is_active"`
	Status         string `dynamodbav:"status"`
	CurrentOrderID string `dynamodbav:"current_order_id,omitempty"`
	LastOrderAt    string `dynamodbav:"last_order_at,omitempty"`
	CreatedAt      string `dynamodbav:"created_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

// MachineDynamoRepository persists Machine entities in DynamoDB.
//
// Table requirements:
//   - PK: code (string)
//
// Machine registration and credential handling live in the back office; this
// service reads machines and flips their display status around dispensing.

type MachineDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.IMachineRepository = (*MachineDynamoRepository)(nil)

func NewMachineDynamoRepository(ddb *dynamodb.Client) *MachineDynamoRepository {
	return &MachineDynamoRepository{
		ddb:       ddb,
		tableName: getenvDefault("MACHINES_TABLE", defaultMachinesTableName),
	}
}

func (r *MachineDynamoRepository) GetByCode(ctx context.Context, code string) (entities.Machine, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: code},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Machine{}, err
	}
	if len(out.Item) == 0 {
		return entities.Machine{}, nil
	}

	var it machineItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Machine{}, err
	}
	return fromMachineItem(it), nil
}

// SetStatus updates the display status and current order pointer. Best
// effort: a missing machine is ignored, the order state machine is the
// authority.
func (r *MachineDynamoRepository) SetStatus(ctx context.Context, code string, status entities.MachineStatus, currentOrderID string) error {
	now := formatTime(time.Now())

	expr := "SET #status = :status, #updated_at = :updated_at, #last_order_at = :now"
	values := map[string]types.AttributeValue{
		":status":     &types.AttributeValueMemberS{Value: string(status)},
		":updated_at": &types.AttributeValueMemberS{Value: now},
		":now":        &types.AttributeValueMemberS{Value: now},
	}
	names := map[string]string{
		"#status":        "status",
		"#updated_at":    "updated_at",
		"#last_order_at": "last_order_at",
		"#code":          "code",
		"#coid":          "current_order_id",
	}
	if currentOrderID != "" {
		expr += ", #coid = :coid"
		values[":coid"] = &types.AttributeValueMemberS{Value: currentOrderID}
	} else {
		expr += " REMOVE #coid"
	}

	_, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: code},
		},
		ConditionExpression:       aws.String("attribute_exists(#code)"),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil
		}
		return err
	}
	return nil
}

func fromMachineItem(it machineItem) entities.Machine {
	return entities.Machine{
		ID:             it.ID,
		Code:           it.Code,
		Name:           it.Name,
		Location:       it.Location,
		IsActive:       it.IsActive,
		Status:         entities.MachineStatus(it.Status),
		CurrentOrderID: it.CurrentOrderID,
		LastOrderAt:    parseTimePtr(it.LastOrderAt),
		CreatedAt:      parseTime(it.CreatedAt),
		UpdatedAt:      parseTime(it.UpdatedAt),
	}
}
