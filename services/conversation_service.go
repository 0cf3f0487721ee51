package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"zenny/config"
	"zenny/models"
)

const (
	conversationsTable = "AutoCRMConversations"
	messagesTable      = "AutoCRMMessages"

	// Messages older than this are invisible to both the LLM context and
	// the client history view.
	historyWindow = 6 * time.Hour

	// Fixed-width UTC timestamps so lexicographic range-key order matches
	// chronological order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(timestampLayout, s)
	return t
}

// dynamoAPI is the subset of the DynamoDB client used by the store.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ConversationService persists AutoCRM conversations and messages.
type ConversationService struct {
	db  dynamoAPI
	now func() time.Time
}

func NewConversationService(db dynamoAPI) *ConversationService {
	return &ConversationService{db: db, now: time.Now}
}

func NewDynamoDBClient() *dynamodb.Client {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: config.GetDynamoEndpoint(),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
			},
		}),
	)
	if err != nil {
		panic(err)
	}

	return dynamodb.NewFromConfig(cfg)
}

// EnsureTables creates the conversation tables if they do not exist yet.
func EnsureTables(db *dynamodb.Client) {
	tables := []struct {
		name    string
		hashKey string
		sortKey string
	}{
		{conversationsTable, "UserID", "ID"},
		{messagesTable, "ConversationID", "CreatedAt"},
	}

	for _, t := range tables {
		_, err := db.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
			TableName: aws.String(t.name),
			AttributeDefinitions: []types.AttributeDefinition{
				{
					AttributeName: aws.String(t.hashKey),
					AttributeType: types.ScalarAttributeTypeS,
				},
				{
					AttributeName: aws.String(t.sortKey),
					AttributeType: types.ScalarAttributeTypeS,
				},
			},
			KeySchema: []types.KeySchemaElement{
				{
					AttributeName: aws.String(t.hashKey),
					KeyType:       types.KeyTypeHash,
				},
				{
					AttributeName: aws.String(t.sortKey),
					KeyType:       types.KeyTypeRange,
				},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			fmt.Printf("Table %s might already exist: %v\n", t.name, err)
		}
	}
}

// LatestConversation returns the most recently updated conversation for the
// user, or found=false when the user has none.
func (s *ConversationService) LatestConversation(ctx context.Context, userID string) (models.Conversation, bool, error) {
	result, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(conversationsTable),
		KeyConditionExpression: aws.String("UserID = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("failed to query conversations: %v", err)
	}

	var latest models.Conversation
	found := false
	for _, item := range result.Items {
		conv := conversationFromItem(item)
		if !found || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
			found = true
		}
	}
	return latest, found, nil
}

// LoadOrCreateConversation returns the user's current conversation, creating
// one lazily on first contact. Two concurrent first requests can race to
// create two conversations; the later-touched one wins future lookups.
func (s *ConversationService) LoadOrCreateConversation(ctx context.Context, userID string) (models.Conversation, error) {
	latest, found, err := s.LatestConversation(ctx, userID)
	if err != nil {
		return models.Conversation{}, err
	}
	if found {
		return latest, nil
	}

	now := s.now()
	conv := models.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(conversationsTable),
		Item: map[string]types.AttributeValue{
			"UserID":    &types.AttributeValueMemberS{Value: conv.UserID},
			"ID":        &types.AttributeValueMemberS{Value: conv.ID},
			"CreatedAt": &types.AttributeValueMemberS{Value: formatTimestamp(conv.CreatedAt)},
			"UpdatedAt": &types.AttributeValueMemberS{Value: formatTimestamp(conv.UpdatedAt)},
		},
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to create conversation: %v", err)
	}
	return conv, nil
}

// AppendMessage inserts one immutable message row. The conversation timestamp
// is not touched here; callers bump it via TouchConversation.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID, sender, content string) (models.Message, error) {
	msg := models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      s.now(),
	}

	_, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(messagesTable),
		Item: map[string]types.AttributeValue{
			"ConversationID": &types.AttributeValueMemberS{Value: msg.ConversationID},
			"CreatedAt":      &types.AttributeValueMemberS{Value: formatTimestamp(msg.CreatedAt)},
			"ID":             &types.AttributeValueMemberS{Value: msg.ID},
			"Sender":         &types.AttributeValueMemberS{Value: msg.Sender},
			"Content":        &types.AttributeValueMemberS{Value: msg.Content},
		},
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to save message: %v", err)
	}
	return msg, nil
}

// LoadHistory returns the most recent messages inside the 6-hour window in
// chronological order. A limit <= 0 means all messages in the window.
func (s *ConversationService) LoadHistory(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	cutoff := formatTimestamp(s.now().Add(-historyWindow))

	input := &dynamodb.QueryInput{
		TableName:              aws.String(messagesTable),
		KeyConditionExpression: aws.String("ConversationID = :cid AND CreatedAt >= :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid":    &types.AttributeValueMemberS{Value: conversationID},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := s.db.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %v", err)
	}

	// Newest-first from the query; reverse into chronological order.
	messages := make([]models.Message, 0, len(result.Items))
	for i := len(result.Items) - 1; i >= 0; i-- {
		messages = append(messages, messageFromItem(result.Items[i]))
	}
	return messages, nil
}

// TouchConversation bumps the conversation's UpdatedAt so it stays the
// "most recent" conversation for future lookups.
func (s *ConversationService) TouchConversation(ctx context.Context, userID, conversationID string) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(conversationsTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
			"ID":     &types.AttributeValueMemberS{Value: conversationID},
		},
		UpdateExpression: aws.String("SET UpdatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: formatTimestamp(s.now())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %v", err)
	}
	return nil
}

func conversationFromItem(item map[string]types.AttributeValue) models.Conversation {
	conv := models.Conversation{
		UserID: stringAttr(item, "UserID"),
		ID:     stringAttr(item, "ID"),
	}
	conv.CreatedAt = parseTimestamp(stringAttr(item, "CreatedAt"))
	conv.UpdatedAt = parseTimestamp(stringAttr(item, "UpdatedAt"))
	return conv
}

func messageFromItem(item map[string]types.AttributeValue) models.Message {
	msg := models.Message{
		ID:             stringAttr(item, "ID"),
		ConversationID: stringAttr(item, "ConversationID"),
		Sender:         stringAttr(item, "Sender"),
		Content:        stringAttr(item, "Content"),
	}
	msg.CreatedAt = parseTimestamp(stringAttr(item, "CreatedAt"))
	return msg
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if attr, ok := item[name].(*types.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}
