package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// BatchProcessor periodically condenses recent AutoCRM exchanges into
// per-user digest rows for the analytics dashboard.
type BatchProcessor struct {
	postgresDB *sql.DB
	dynamoDB   *dynamodb.Client
	openai     *openai.Client
}

func NewBatchProcessor(postgresURI string, dynamoClient *dynamodb.Client, openAIKey string) (*BatchProcessor, error) {
	db, err := OpenPostgres(postgresURI)
	if err != nil {
		return nil, err
	}

	return &BatchProcessor{
		postgresDB: db,
		dynamoDB:   dynamoClient,
		openai:     openai.NewClient(openAIKey),
	}, nil
}

// ProcessConversations digests every conversation active in the last three
// hours. Per-user failures are logged and skipped so one bad conversation
// does not stall the run.
func (bp *BatchProcessor) ProcessConversations() error {
	now := time.Now()
	threeHoursAgo := now.Add(-3 * time.Hour)

	active, err := bp.activeConversations(threeHoursAgo)
	if err != nil {
		return fmt.Errorf("failed to get active conversations: %v", err)
	}

	for _, conv := range active {
		messages, err := bp.messagesInPeriod(conv.ID, threeHoursAgo)
		if err != nil {
			log.Printf("Error getting messages for conversation %s: %v", conv.ID, err)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		summary, err := bp.summarize(messages)
		if err != nil {
			log.Printf("Error summarizing conversation %s: %v", conv.ID, err)
			continue
		}

		if err := bp.saveDigest(conv.UserID, summary, threeHoursAgo, now); err != nil {
			log.Printf("Error saving digest for user %s: %v", conv.UserID, err)
			continue
		}

		log.Printf("Digested conversation %s for user %s", conv.ID, conv.UserID)
	}

	return nil
}

type activeConversation struct {
	ID     string
	UserID string
}

func (bp *BatchProcessor) activeConversations(since time.Time) ([]activeConversation, error) {
	result, err := bp.dynamoDB.Scan(context.TODO(), &dynamodb.ScanInput{
		TableName:        aws.String(conversationsTable),
		FilterExpression: aws.String("UpdatedAt >= :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberS{Value: formatTimestamp(since)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversations: %v", err)
	}

	var active []activeConversation
	for _, item := range result.Items {
		active = append(active, activeConversation{
			ID:     stringAttr(item, "ID"),
			UserID: stringAttr(item, "UserID"),
		})
	}
	return active, nil
}

func (bp *BatchProcessor) messagesInPeriod(conversationID string, since time.Time) ([]string, error) {
	result, err := bp.dynamoDB.Query(context.TODO(), &dynamodb.QueryInput{
		TableName:              aws.String(messagesTable),
		KeyConditionExpression: aws.String("ConversationID = :cid AND CreatedAt >= :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: conversationID},
			":ts":  &types.AttributeValueMemberS{Value: formatTimestamp(since)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %v", err)
	}

	var lines []string
	for _, item := range result.Items {
		lines = append(lines, fmt.Sprintf("%s: %s", stringAttr(item, "Sender"), stringAttr(item, "Content")))
	}
	return lines, nil
}

func (bp *BatchProcessor) summarize(lines []string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), classifierTimeout)
	defer cancel()

	resp, err := bp.openai.CreateChatCompletion(ctx,
		openai.ChatCompletionRequest{
			Model: classifierModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "Summarize this helpdesk assistant session in two or three sentences. Mention which tickets were searched, updated or created.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: strings.Join(lines, "\n"),
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (bp *BatchProcessor) saveDigest(userID, summary string, start, end time.Time) error {
	_, err := bp.postgresDB.Exec(`
		INSERT INTO autocrm_digests (id, user_id, summary, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New().String(), userID, summary, start, end,
	)
	if err != nil {
		return fmt.Errorf("failed to insert digest: %v", err)
	}
	return nil
}
