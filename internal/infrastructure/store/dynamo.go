package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/domain/user"
	"github.com/shopspring/decimal"
)

// DynamoTables names the tables of the DynamoDB backend. Carts and users
// are keyed by email, products by id.
type DynamoTables struct {
	Carts    string
	Users    string
	Products string
}

// DynamoAPI is the subset of *dynamodb.Client the stores use.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

func NewDynamoStores(client DynamoAPI, tables DynamoTables) *Stores {
	return &Stores{
		Carts:    &DynamoCartStore{client: client, tables: tables},
		Users:    &DynamoUserStore{client: client, table: tables.Users},
		Products: &DynamoProductStore{client: client, table: tables.Products},
	}
}

// dynamoCart represents the DynamoDB item structure for a cart
type dynamoCart struct {
	Email         string `dynamodbav:"email"`
	ID            string `dynamodbav:"id"`
	Items         string `dynamodbav:"items"` // JSON encoded []cart.CartItem
	PaymentOption string `dynamodbav:"payment_option"`
	CreatedAt     string `dynamodbav:"created_at"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

type dynamoUser struct {
	Email        string                `dynamodbav:"email"`
	ID           string                `dynamodbav:"id"`
	Name         string                `dynamodbav:"name"`
	PasswordHash string                `dynamodbav:"password_hash"`
	Address      string                `dynamodbav:"address"`
	WalletMoney  attributevalue.Number `dynamodbav:"wallet_money"`
	CreatedAt    string                `dynamodbav:"created_at"`
	UpdatedAt    string                `dynamodbav:"updated_at"`
}

type dynamoProduct struct {
	ID       string                `dynamodbav:"id"`
	Name     string                `dynamodbav:"name"`
	Category string                `dynamodbav:"category"`
	Cost     attributevalue.Number `dynamodbav:"cost"`
	Rating   int                   `dynamodbav:"rating"`
	Image    string                `dynamodbav:"image"`
}

func emailKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: email},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func toDynamoCart(c *cart.Cart) (dynamoCart, error) {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return dynamoCart{}, fmt.Errorf("failed to encode cart items: %w", err)
	}
	return dynamoCart{
		Email:         c.Email,
		ID:            c.ID,
		Items:         string(items),
		PaymentOption: c.PaymentOption,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:     c.UpdatedAt.Format(time.RFC3339Nano),
	}, nil
}

func (dc dynamoCart) toCart() (*cart.Cart, error) {
	c := &cart.Cart{
		ID:            dc.ID,
		Email:         dc.Email,
		Items:         []cart.CartItem{},
		PaymentOption: dc.PaymentOption,
	}
	if dc.Items != "" {
		if err := json.Unmarshal([]byte(dc.Items), &c.Items); err != nil {
			return nil, fmt.Errorf("failed to decode cart items: %w", err)
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, dc.CreatedAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, dc.UpdatedAt)
	return c, nil
}

func toDynamoUser(u *user.User) dynamoUser {
	return dynamoUser{
		Email:        u.Email,
		ID:           u.ID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Address:      u.Address,
		WalletMoney:  attributevalue.Number(u.WalletMoney.String()),
		CreatedAt:    u.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:    u.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (du dynamoUser) toUser() (*user.User, error) {
	wallet, err := decimal.NewFromString(string(du.WalletMoney))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet_money %q: %w", du.WalletMoney, err)
	}
	u := &user.User{
		ID:           du.ID,
		Email:        du.Email,
		Name:         du.Name,
		PasswordHash: du.PasswordHash,
		Address:      du.Address,
		WalletMoney:  wallet,
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, du.CreatedAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, du.UpdatedAt)
	return u, nil
}

func (dp dynamoProduct) toProduct() (product.Product, error) {
	cost, err := decimal.NewFromString(string(dp.Cost))
	if err != nil {
		return product.Product{}, fmt.Errorf("invalid cost %q: %w", dp.Cost, err)
	}
	return product.Product{
		ID:       dp.ID,
		Name:     dp.Name,
		Category: dp.Category,
		Cost:     cost,
		Rating:   dp.Rating,
		Image:    dp.Image,
	}, nil
}

// DynamoCartStore stores carts in DynamoDB.
type DynamoCartStore struct {
	client DynamoAPI
	tables DynamoTables
}

func (s *DynamoCartStore) FindByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Carts),
		Key:            emailKey(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if result.Item == nil {
		return nil, cart.ErrCartNotFound
	}

	var dc dynamoCart
	if err := attributevalue.UnmarshalMap(result.Item, &dc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	return dc.toCart()
}

// Create uses a conditional put so only one cart per email can exist.
func (s *DynamoCartStore) Create(ctx context.Context, email string) (*cart.Cart, error) {
	c := cart.New(email)
	item, err := toDynamoCart(c)
	if err != nil {
		return nil, err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Carts),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, cart.ErrConflict
		}
		return nil, fmt.Errorf("failed to put cart: %w", err)
	}
	return c, nil
}

func (s *DynamoCartStore) Save(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	saved := c.Clone()
	saved.UpdatedAt = time.Now()
	item, err := toDynamoCart(saved)
	if err != nil {
		return nil, err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Carts),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(email)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to put cart: %w", err)
	}
	return saved, nil
}

// CommitCheckout debits the wallet and empties the cart with
// TransactWriteItems. Either both updates apply or neither does.
func (s *DynamoCartStore) CommitCheckout(ctx context.Context, co cart.Checkout) error {
	now := &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(s.tables.Users),
					Key:                 emailKey(co.Email),
					UpdateExpression:    aws.String("SET wallet_money = wallet_money - :total, updated_at = :now"),
					ConditionExpression: aws.String("attribute_exists(email) AND wallet_money >= :total"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":total": &types.AttributeValueMemberN{Value: co.Total.String()},
						":now":   now,
					},
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(s.tables.Carts),
					Key:                 emailKey(co.Email),
					UpdateExpression:    aws.String("SET #items = :empty, updated_at = :now"),
					ConditionExpression: aws.String("#id = :cart_id"),
					ExpressionAttributeNames: map[string]string{
						"#items": "items",
						"#id":    "id",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":empty":   &types.AttributeValueMemberS{Value: "[]"},
						":cart_id": &types.AttributeValueMemberS{Value: co.CartID},
						":now":     now,
					},
				},
			},
		},
	})
	if err != nil {
		return checkoutCancellation(err)
	}
	return nil
}

// checkoutCancellation maps a cancelled transaction to the failing guard.
// Reasons are reported in TransactItems order: wallet first, cart second.
func checkoutCancellation(err error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		if i == 0 {
			return cart.ErrInsufficientFunds
		}
		return cart.ErrCartNotFound
	}
	return fmt.Errorf("failed to commit checkout: %w", err)
}

// DynamoUserStore stores users in DynamoDB.
type DynamoUserStore struct {
	client DynamoAPI
	table  string
}

func (s *DynamoUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            emailKey(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, user.ErrUserNotFound
	}

	var du dynamoUser
	if err := attributevalue.UnmarshalMap(result.Item, &du); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return du.toUser()
}

func (s *DynamoUserStore) Create(ctx context.Context, u *user.User) error {
	av, err := attributevalue.MarshalMap(toDynamoUser(u))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// Save updates the profile fields. The wallet is only changed by
// CommitCheckout.
func (s *DynamoUserStore) Save(ctx context.Context, u *user.User) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 emailKey(u.Email),
		UpdateExpression:    aws.String("SET #name = :name, password_hash = :hash, address = :address, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(email)"),
		ExpressionAttributeNames: map[string]string{
			"#name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":    &types.AttributeValueMemberS{Value: u.Name},
			":hash":    &types.AttributeValueMemberS{Value: u.PasswordHash},
			":address": &types.AttributeValueMemberS{Value: u.Address},
			":now":     &types.AttributeValueMemberS{Value: u.UpdatedAt.Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DynamoProductStore stores the catalog in DynamoDB.
type DynamoProductStore struct {
	client DynamoAPI
	table  string
}

func (s *DynamoProductStore) Find(ctx context.Context, id string) (*product.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if result.Item == nil {
		return nil, product.ErrProductNotFound
	}

	var dp dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Item, &dp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	p, err := dp.toProduct()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List scans the whole table and orders the result by id.
func (s *DynamoProductStore) List(ctx context.Context) ([]product.Product, error) {
	products := []product.Product{}
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		for _, item := range page.Items {
			var dp dynamoProduct
			if err := attributevalue.UnmarshalMap(item, &dp); err != nil {
				return nil, fmt.Errorf("failed to unmarshal product: %w", err)
			}
			p, err := dp.toProduct()
			if err != nil {
				return nil, err
			}
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *DynamoProductStore) Put(ctx context.Context, p product.Product) error {
	av, err := attributevalue.MarshalMap(dynamoProduct{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Cost:     attributevalue.Number(p.Cost.String()),
		Rating:   p.Rating,
		Image:    p.Image,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	return nil
}
