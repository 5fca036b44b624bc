package svc

import (
	"context"
	"log"
	"math/big"
	"time"

	"nftminter/internal/config"
	"nftminter/internal/constant"
	"nftminter/internal/contract"
	"nftminter/internal/model"
	"nftminter/internal/notify"
	"nftminter/internal/session"
	"nftminter/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/zeromicro/go-zero/core/logx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ServiceContext struct {
	Config     config.Config
	DB         *gorm.DB
	WalletsDao model.WalletsDao
	EthClient  *ethclient.Client
	Runtime    *contract.Runtime
	Links      constant.Links
	Hub        *notify.Hub
	Session    *session.Controller

	nodeProvider *wallet.NodeProvider
	publisher    *notify.AMQPPublisher
}

func NewServiceContext(c config.Config) *ServiceContext {
	ctx := context.Background()
	svcCtx := &ServiceContext{Config: c}

	// keystore 模式需要数据库, node 模式下数据库可选
	if c.Postgres.DSN != "" {
		db, err := initDB(c.Postgres.DSN)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		svcCtx.DB = db
		svcCtx.WalletsDao = model.NewWalletsDao(db)
	} else if c.Wallet.Mode == config.WalletModeKeystore {
		log.Fatalf("keystore wallet mode requires Postgres.DSN")
	}

	endpoint := c.Chain.RpcUrl
	if c.Chain.WsUrl != "" {
		endpoint = c.Chain.WsUrl
	}
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		log.Fatalf("failed to connect to %s node: %v", c.Chain.Name, err)
	}
	svcCtx.EthClient = client

	chainID := big.NewInt(c.Chain.ChainId)
	if c.Chain.ChainId == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			log.Fatalf("failed to get chain id: %v", err)
		}
	}

	parsed, err := contract.LoadABI(c.Contract.AbiFile)
	if err != nil {
		log.Fatalf("failed to load contract abi: %v", err)
	}
	if !common.IsHexAddress(c.Contract.Address) {
		log.Fatalf("invalid contract address: %q", c.Contract.Address)
	}
	contractAddr := common.HexToAddress(c.Contract.Address)

	svcCtx.Runtime, err = contract.NewRuntime(client, contract.Options{
		Address:        contractAddr,
		ChainID:        chainID,
		ABI:            parsed,
		MintMethod:     c.Contract.MintMethod,
		EventName:      c.Contract.EventName,
		RecipientField: c.Contract.RecipientField,
		TokenIDField:   c.Contract.TokenIdField,
		GasLimit:       c.Contract.GasLimit,
		PollInterval:   time.Duration(c.Contract.PollInterval) * time.Millisecond,
		Streaming:      c.Chain.WsUrl != "",
	})
	if err != nil {
		log.Fatalf("failed to init contract runtime: %v", err)
	}

	svcCtx.Links, err = constant.NewLinks(c.Chain.Name, contractAddr, c.Links.Marketplace)
	if err != nil {
		log.Fatalf("failed to resolve links: %v", err)
	}

	svcCtx.Hub = notify.NewHub(c.Notify.QueueSize)
	notifiers := notify.Multi{svcCtx.Hub, notify.Log{}}
	if c.Notify.Amqp.Url != "" {
		svcCtx.publisher, err = notify.DialAMQP(c.Notify.Amqp.Url, c.Notify.Amqp.Exchange, c.Notify.Amqp.RoutingKey)
		if err != nil {
			log.Fatalf("failed to init notification publisher: %v", err)
		}
		notifiers = append(notifiers, svcCtx.publisher)
	}

	var provider session.WalletProvider
	switch c.Wallet.Mode {
	case config.WalletModeKeystore:
		if err := svcCtx.DB.AutoMigrate(&model.Wallets{}); err != nil {
			log.Fatalf("failed to migrate wallets table: %v", err)
		}
		provider = wallet.NewKeystoreProvider(svcCtx.WalletsDao, wallet.ApproveAll)
	default:
		svcCtx.nodeProvider = wallet.DialNodeProvider(ctx, c.Wallet.Endpoint)
		provider = svcCtx.nodeProvider
	}

	svcCtx.Session = session.NewController(provider, svcCtx.Runtime, notifiers, svcCtx.Links)
	logx.Infof("🔗 %s 合约 %s, 钱包模式: %s", c.Chain.Name, contractAddr.Hex(), c.Wallet.Mode)
	return svcCtx
}

// Close releases the confirmation subscription and every connection.
func (s *ServiceContext) Close() {
	s.Session.Close()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logx.Errorf("关闭 RabbitMQ 连接失败: %v", err)
		}
	}
	if s.nodeProvider != nil {
		s.nodeProvider.Close()
	}
	s.EthClient.Close()
}

func initDB(dsn string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}
