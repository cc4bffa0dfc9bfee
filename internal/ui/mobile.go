package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// DeviceLayout adapts the arrangement of the video panel to the device the
// app runs on: side by side on desktop and landscape phones, stacked in
// portrait.
type DeviceLayout struct {
	device fyne.Device
}

// NewDeviceLayout creates a layout helper for the current device
func NewDeviceLayout() *DeviceLayout {
	return &DeviceLayout{device: fyne.CurrentDevice()}
}

// IsMobile reports whether the app runs on a phone or tablet
func (d *DeviceLayout) IsMobile() bool {
	return d.device != nil && d.device.IsMobile()
}

// IsPortrait returns true on a mobile device held upright
func (d *DeviceLayout) IsPortrait() bool {
	if !d.IsMobile() {
		return false
	}
	o := d.device.Orientation()
	return o == fyne.OrientationVertical || o == fyne.OrientationVerticalUpsideDown
}

// Header lays out the thumbnail next to the video details, or above them in
// portrait.
func (d *DeviceLayout) Header(thumbnail, details fyne.CanvasObject) *fyne.Container {
	if d.IsPortrait() {
		return container.NewVBox(container.NewCenter(thumbnail), details)
	}
	return container.NewBorder(nil, nil, thumbnail, nil, details)
}

// ActionButton creates a button that keeps a finger-sized target on mobile
func (d *DeviceLayout) ActionButton(text string, onTapped func()) (*widget.Button, fyne.CanvasObject) {
	btn := widget.NewButton(text, onTapped)
	if !d.IsMobile() {
		return btn, btn
	}
	size := btn.MinSize().Max(fyne.NewSize(MinTouchTargetSize, MinTouchTargetSize))
	return btn, container.NewGridWrap(size, btn)
}
