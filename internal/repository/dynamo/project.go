// Package dynamo implements repositories against Amazon DynamoDB.
//
// All projects share the partition key "PROJECT" and use their id as the
// sort key, so a single Query returns the whole collection.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/ignite/portfolio-api/internal/domain"
	"github.com/ignite/portfolio-api/internal/service/project"
)

const projectPartition = "PROJECT"

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// projectItem is the stored shape of a project.
type projectItem struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	ID          string    `dynamodbav:"id"`
	ImageURL    string    `dynamodbav:"image_url"`
	Title       string    `dynamodbav:"title"`
	Description string    `dynamodbav:"description"`
	Link        string    `dynamodbav:"link"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}

func toItem(p *domain.Project) projectItem {
	return projectItem{
		PK:          projectPartition,
		SK:          p.ID,
		ID:          p.ID,
		ImageURL:    p.ImageURL,
		Title:       p.Title,
		Description: p.Description,
		Link:        p.Link,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (it projectItem) project() domain.Project {
	return domain.Project{
		ID:          it.ID,
		ImageURL:    it.ImageURL,
		Title:       it.Title,
		Description: it.Description,
		Link:        it.Link,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// ProjectRepo implements project.Repository against a DynamoDB table.
type ProjectRepo struct {
	client API
	table  string
	now    func() time.Time
}

// NewProjectRepo creates a DynamoDB-backed project repository.
func NewProjectRepo(client API, table string) *ProjectRepo {
	return &ProjectRepo{client: client, table: table, now: time.Now}
}

func (r *ProjectRepo) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: projectPartition},
		"SK": &types.AttributeValueMemberS{Value: id},
	}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	av, err := attributevalue.MarshalMap(toItem(p))
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("putting project to DynamoDB: %w", err)
	}
	return nil
}

func (r *ProjectRepo) ListByRecency(ctx context.Context) ([]domain.Project, error) {
	out := make([]domain.Project, 0)
	var startKey map[string]types.AttributeValue
	for {
		res, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: projectPartition},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying projects: %w", err)
		}

		var items []projectItem
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshaling projects: %w", err)
		}
		for _, it := range items {
			out = append(out, it.project())
		}

		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		startKey = res.LastEvaluatedKey
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (*domain.Project, error) {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       r.key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	if len(res.Item) == 0 {
		return nil, project.ErrNotFound
	}
	var it projectItem
	if err := attributevalue.UnmarshalMap(res.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshaling project: %w", err)
	}
	p := it.project()
	return &p, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.table),
		Key:          r.key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}
	return len(res.Attributes) > 0, nil
}

func (r *ProjectRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err != nil {
		return fmt.Errorf("describing table %s: %w", r.table, err)
	}
	return nil
}

// EnsureTable creates the projects table with on-demand billing. An
// existing table is left untouched.
func (r *ProjectRepo) EnsureTable(ctx context.Context) (created bool, err error) {
	_, err = r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(r.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("creating table %s: %w", r.table, err)
	}
	return true, nil
}
