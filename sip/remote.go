package sip

// DialogRemoteHandle translates a dialog handle into the handle of the
// peer dialog side, resolved inside the owning call actor. Unlinked legs
// and unknown dialogs look the same as missing calls.
func DialogRemoteHandle(handle string) (string, error) {
	dh, err := DecodeDialogHandle(handle)
	if err != nil {
		return "", err
	}
	var remoteID string
	err = WithCall(dh.CallID, func(call *SipCall) {
		if dialog := call.FindDialog(dh.DialogID); dialog != nil {
			remoteID = dialog.RemoteID
		}
	})
	if err != nil {
		return "", err
	}
	if remoteID == "" {
		return "", ErrCallNotFound
	}
	return EncodeDialogHandle(DialogHandle{
		ServiceID: dh.ServiceID,
		DialogID:  remoteID,
		CallID:    dh.CallID,
	}), nil
}

// RemoteSubscriptionHandle rewrites a subscription handle so it addresses
// the same subscription as seen from the peer dialog side. Only the dialog
// component changes - the subscription identity is derived from message
// content and is therefore shared by both sides.
func RemoteSubscriptionHandle(handle string) (string, error) {
	sh, err := DecodeSubscriptionHandle(handle)
	if err != nil {
		return "", err
	}
	remoteDlg, err := DialogRemoteHandle(EncodeDialogHandle(DialogHandle{
		ServiceID: sh.ServiceID,
		DialogID:  sh.DialogID,
		CallID:    sh.CallID,
	}))
	if err != nil {
		return "", err
	}
	dh, err := DecodeDialogHandle(remoteDlg)
	if err != nil {
		return "", err
	}
	return EncodeSubscriptionHandle(SubscriptionHandle{
		ServiceID:      sh.ServiceID,
		SubscriptionID: sh.SubscriptionID,
		DialogID:       dh.DialogID,
		CallID:         sh.CallID,
	}), nil
}
