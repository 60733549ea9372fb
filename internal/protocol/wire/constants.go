package wire

// 无线帧与主机行的尺寸约束，全部字段小端序
//
//	单索引事件: [id:12][pressed:1][seq:u32][uptime_ms:u32]             = 21 字节
//	多索引事件: [id:16][index:u8][pressed:1][seq:u32][uptime_ms:u32]   = 26 字节
//	确认帧:     [magic:u16][sender_id:u32][seq:u32]                    = 10 字节
//	带头文本:   [sender_id:u32][seq:u32][text...]
//	原始文本:   以 '{' 开头
const (
	MaxFrameSize = 250 // 无线负载上限
	MaxLineLen   = 240 // 单条文本/主机行消息体上限

	SingleIDLen     = 12
	MultiIDLen      = 16
	SingleEventSize = SingleIDLen + 1 + 4 + 4
	MultiEventSize  = MultiIDLen + 1 + 1 + 4 + 4

	HeaderSize     = 8
	MinHeaderFrame = HeaderSize + 4

	AckSize         = 10
	AckMagic uint16 = 0xA55A

	MaxIDLen   = 23 // 注册表 ID 上限
	DedupIDLen = 15 // 去重表 ID 上限

	DefaultNodePrefix = "BTN"
	DefaultMaxIndex   = 8
)
