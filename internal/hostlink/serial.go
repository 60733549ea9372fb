package hostlink

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial 通过串口连接主机
func OpenSerial(port string, baud int) (*StreamLink, error) {
	if baud <= 0 {
		baud = 115200
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	// 丢弃打开前积压的半行
	_ = p.ResetInputBuffer()
	return NewStream("serial:"+port, p, p, p), nil
}

// SerialPorts 列出可用串口
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
